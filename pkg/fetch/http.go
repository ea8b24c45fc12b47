package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hermes-notify/subsync/pkg/version"
)

// Default HTTP settings.
const (
	DefaultTimeout        = 60 * time.Second
	DefaultConnectTimeout = 5 * time.Second
	DefaultTLSTimeout     = 5 * time.Second

	// RequestIDHeader carries a per-request UUID for server-side correlation.
	RequestIDHeader = "X-Request-Id"
)

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 4096

// Config configures an HTTPFetcher.
type Config struct {
	// BaseURL is the scheme and host of the API, e.g. "https://hermes.example.com".
	BaseURL string

	// Version selects the "/api/{version}" path prefix. Zero means version.Current.
	Version version.APIVersion

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout bounds a single HTTP exchange. Zero means DefaultTimeout.
	Timeout time.Duration

	// ReadRetries is the number of additional GET attempts after a
	// retryable failure. Zero disables retries.
	ReadRetries int

	// Backoff configures the delay between GET retries. The zero value uses
	// the package defaults with JitterFactor jitter.
	Backoff BackoffConfig

	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client

	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger
}

// HTTPFetcher implements Fetcher over net/http.
type HTTPFetcher struct {
	base    *url.URL
	version version.APIVersion
	client  *http.Client
	retries int
	backoff BackoffConfig
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewHTTPFetcher creates a fetcher for the given configuration.
func NewHTTPFetcher(cfg Config) (*HTTPFetcher, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrBaseURL, base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrBaseURL)
	}

	v := cfg.Version
	if v.Major == 0 {
		v = version.MustParse(version.Current)
	}

	client := cfg.Client
	if client == nil {
		client = defaultClient(cfg.Timeout)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	retries := cfg.ReadRetries
	if retries < 0 {
		retries = 0
	}

	backoff := cfg.Backoff
	if backoff == (BackoffConfig{}) {
		backoff.Jitter = JitterFactor
	}

	return &HTTPFetcher{
		base:    base,
		version: v,
		client:  client,
		retries: retries,
		backoff: backoff,
		logger:  logger,
		token:   cfg.Token,
	}, nil
}

// defaultClient builds a client with explicit dial and TLS timeouts
// instead of relying on http.DefaultClient.
func defaultClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{
		Timeout: DefaultConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: DefaultTLSTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// SetToken replaces the bearer token used for subsequent requests.
func (f *HTTPFetcher) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// URL returns the absolute URL for an endpoint path.
func (f *HTTPFetcher) URL(path string) string {
	u := *f.base
	u.Path = strings.TrimRight(u.Path, "/") + f.version.Path(path)
	return u.String()
}

// Get implements Fetcher.
func (f *HTTPFetcher) Get(ctx context.Context, path string, out any) error {
	backoff := NewBackoffWithConfig(f.backoff)

	var err error
	for attempt := 0; ; attempt++ {
		err = f.do(ctx, http.MethodGet, path, nil, out)
		if err == nil || attempt >= f.retries || !retryable(ctx, err) {
			return err
		}

		delay := backoff.Next()
		f.logger.Debug("HTTPFetcher: retrying GET",
			"path", path,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// Post implements Fetcher.
func (f *HTTPFetcher) Post(ctx context.Context, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
	}
	return f.do(ctx, http.MethodPost, path, payload, out)
}

func (f *HTTPFetcher) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.URL(path), reqBody)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.New().String())

	f.mu.RLock()
	token := f.token
	f.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f.logger.Debug("HTTPFetcher: response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The response body is the error message.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:  method,
			Path:    path,
			Code:    resp.StatusCode,
			Message: strings.TrimSpace(string(msg)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDecode, method, path, err)
	}
	return nil
}

// retryable reports whether a failed GET should be attempted again.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, ErrDecode) {
		return false
	}
	return true
}

// Compile-time interface satisfaction check.
var _ Fetcher = (*HTTPFetcher)(nil)
