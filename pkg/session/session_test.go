package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hermes-notify/subsync/pkg/fetch/mocks"
	"github.com/hermes-notify/subsync/pkg/log"
)

var alice = UserInfo{Name: "Alice Example", Email: "alice@example.com", GivenName: "Alice", Picture: "https://example.com/a.png"}

func respond(info UserInfo) func(context.Context, string, any) error {
	return func(_ context.Context, _ string, out any) error {
		*out.(*UserInfo) = info
		return nil
	}
}

func TestCacheLoad(t *testing.T) {
	f := mocks.NewMockFetcher(t)
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).RunAndReturn(respond(alice)).Once()

	rec := log.NewRecorder(0)
	c := New(f, Config{EventLogger: rec, SessionID: "s"})

	_, err := c.Current()
	assert.ErrorIs(t, err, ErrNotLoaded)

	info, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, info)

	// Second load is served from cache.
	info, err = c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, info)

	current, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, alice, current)

	var states int
	for _, e := range rec.Events() {
		if e.StateChange != nil {
			states++
			assert.Equal(t, log.StateEntityUserInfo, e.StateChange.Entity)
		}
	}
	assert.Equal(t, 1, states)
}

func TestCacheLoadConcurrentSharesFetch(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	f := mocks.NewMockFetcher(t)
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).
		RunAndReturn(func(ctx context.Context, path string, out any) error {
			calls.Add(1)
			<-release
			return respond(alice)(ctx, path, out)
		}).Once()

	c := New(f, Config{})

	const callers = 2
	results := make([]UserInfo, callers)
	errs := make([]error, callers)
	var started, wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		started.Add(1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], errs[i] = c.Load(context.Background())
		}(i)
	}
	started.Wait()

	// Let both callers reach the in-flight fetch before releasing it.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, alice, results[i])
	}
}

func TestCacheLoadFailure(t *testing.T) {
	cause := errors.New("offline")
	f := mocks.NewMockFetcher(t)
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).Return(cause).Once()
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).RunAndReturn(respond(alice)).Once()

	c := New(f, Config{})

	_, err := c.Load(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, cause)

	_, err = c.Current()
	assert.ErrorIs(t, err, ErrNotLoaded, "failure leaves no cached value")

	// The failure is not cached either.
	info, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, info)
}

func TestCacheReload(t *testing.T) {
	bob := UserInfo{Name: "Bob", Email: "bob@example.com"}

	f := mocks.NewMockFetcher(t)
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).RunAndReturn(respond(alice)).Once()
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).RunAndReturn(respond(bob)).Once()
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).Return(errors.New("boom")).Once()

	c := New(f, Config{})
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	info, err := c.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bob, info)

	_, err = c.Reload(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)

	current, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, bob, current, "failed reload keeps previous value")
}

func TestCacheClear(t *testing.T) {
	f := mocks.NewMockFetcher(t)
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).RunAndReturn(respond(alice)).Twice()

	c := New(f, Config{})
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	c.Clear()
	_, err = c.Current()
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = c.Load(context.Background())
	require.NoError(t, err)
}

func TestCacheClearDuringLoad(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	f := mocks.NewMockFetcher(t)
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).
		RunAndReturn(func(ctx context.Context, path string, out any) error {
			close(entered)
			<-release
			return respond(alice)(ctx, path, out)
		}).Once()

	c := New(f, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Load(context.Background())
		done <- err
	}()

	<-entered
	c.Clear()
	close(release)
	require.NoError(t, <-done)

	_, err := c.Current()
	assert.ErrorIs(t, err, ErrNotLoaded, "a fetch started before Clear is not cached")
}

func TestCacheLoadCancelledCallerDoesNotFailOthers(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	f := mocks.NewMockFetcher(t)
	f.EXPECT().Get(mock.Anything, UserInfoPath, mock.Anything).
		RunAndReturn(func(ctx context.Context, path string, out any) error {
			calls.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
			return respond(alice)(ctx, path, out)
		}).Once()

	c := New(f, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Load(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan UserInfo, 1)
	secondErr := make(chan error, 1)
	go func() {
		info, err := c.Load(context.Background())
		second <- info
		secondErr <- err
	}()
	// Let the second caller join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)

	cancel()
	err := <-first
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.Equal(t, alice, <-second)
	require.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), calls.Load())

	current, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, alice, current)
}
