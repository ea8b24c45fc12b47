package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-notify/subsync/pkg/version"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *HTTPFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL: srv.URL,
		Version: version.MustParse("v2"),
		Token:   "secret",
		Backoff: BackoffConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond},
	}
	for _, m := range mutate {
		m(&cfg)
	}

	f, err := NewHTTPFetcher(cfg)
	require.NoError(t, err)
	return f
}

func TestHTTPFetcher_GetDecodesJSON(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/me/subscriptions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `["A","B"]`)
	})

	var topics []string
	err := f.Get(context.Background(), "/me/subscriptions", &topics)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, topics)
}

func TestHTTPFetcher_PostSendsJSONBody(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"Terraform", "Vault"}, body["subscriptions"])
		w.WriteHeader(http.StatusOK)
	})

	body := map[string][]string{"subscriptions": {"Terraform", "Vault"}}
	err := f.Post(context.Background(), "/me/subscriptions", body, nil)
	assert.NoError(t, err)
}

func TestHTTPFetcher_NoTokenNoAuthorization(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}, func(c *Config) { c.Token = "" })

	assert.NoError(t, f.Get(context.Background(), "/me", nil))
}

func TestHTTPFetcher_SetToken(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer rotated", r.Header.Get("Authorization"))
	})
	f.SetToken("rotated")

	assert.NoError(t, f.Get(context.Background(), "/me", nil))
}

func TestHTTPFetcher_StatusError(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "subscriptions are read-only", http.StatusForbidden)
	})

	err := f.Post(context.Background(), "/me/subscriptions", map[string]any{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))
	assert.True(t, IsStatus(err, http.StatusForbidden))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "subscriptions are read-only", se.Message)
	assert.Contains(t, se.Error(), "403")
}

func TestHTTPFetcher_EmptyAndNullBodies(t *testing.T) {
	for _, body := range []string{"", "   ", "null"} {
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		})

		topics := []string{"untouched"}
		err := f.Get(context.Background(), "/me/subscriptions", &topics)
		require.NoError(t, err, "body %q", body)
		if body == "null" {
			assert.Nil(t, topics)
		} else {
			assert.Equal(t, []string{"untouched"}, topics)
		}
	}
}

func TestHTTPFetcher_DecodeError(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"}`)
	}, func(c *Config) { c.ReadRetries = 3 })

	var topics []string
	err := f.Get(context.Background(), "/me/subscriptions", &topics)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestHTTPFetcher_GetRetriesTemporaryFailures(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `["A"]`)
	}, func(c *Config) { c.ReadRetries = 2 })

	var topics []string
	err := f.Get(context.Background(), "/me/subscriptions", &topics)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, topics)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcher_GetRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}, func(c *Config) { c.ReadRetries = 1 })

	err := f.Get(context.Background(), "/me", nil)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_GetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such user", http.StatusNotFound)
	}, func(c *Config) { c.ReadRetries = 5 })

	err := f.Get(context.Background(), "/me", nil)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_PostIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}, func(c *Config) { c.ReadRetries = 5 })

	err := f.Post(context.Background(), "/me/subscriptions", map[string]any{}, nil)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.Get(ctx, "/me", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPFetcher_EncodeError(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	err := f.Post(context.Background(), "/me/subscriptions", map[string]any{"bad": make(chan int)}, nil)
	assert.ErrorIs(t, err, ErrEncode)
}

func TestNewHTTPFetcher_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "ftp://example.com", "http://", "://bad"} {
		_, err := NewHTTPFetcher(Config{BaseURL: base})
		assert.ErrorIs(t, err, ErrBaseURL, "base %q", base)
	}
}

func TestHTTPFetcher_URL(t *testing.T) {
	f, err := NewHTTPFetcher(Config{BaseURL: "https://hermes.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://hermes.example.com/api/"+version.Current+"/me", f.URL("/me"))
}
