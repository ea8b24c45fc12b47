// Package session caches the authenticated user's identity for the lifetime
// of a session.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hermes-notify/subsync/pkg/fetch"
	"github.com/hermes-notify/subsync/pkg/log"
)

// UserInfoPath is the remote resource holding the user identity.
const UserInfoPath = "/me"

var (
	// ErrNotLoaded is returned by Current before a successful load.
	ErrNotLoaded = errors.New("user info not loaded")

	// ErrFetchFailed wraps a failed remote read.
	ErrFetchFailed = errors.New("fetch user info failed")
)

// UserInfo is the authenticated user's identity record.
type UserInfo struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	GivenName string `json:"given_name"`
	Picture   string `json:"picture"`
}

// Config configures a Cache.
type Config struct {
	// Logger receives operational logs. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives sync events. Nil disables event capture.
	EventLogger log.Logger

	// SessionID tags emitted events.
	SessionID string
}

// Cache fetches and memoizes UserInfo. Concurrent loads share one fetch.
type Cache struct {
	fetcher   fetch.Fetcher
	logger    *slog.Logger
	events    log.Logger
	sessionID string

	group singleflight.Group

	mu   sync.RWMutex
	info *UserInfo
	// gen counts Clear calls; a fetch started before a Clear is not cached.
	gen uint64
}

// New creates an empty cache reading from f.
func New(f fetch.Fetcher, cfg Config) *Cache {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		fetcher:   f,
		logger:    logger,
		events:    log.OrNoop(cfg.EventLogger),
		sessionID: cfg.SessionID,
	}
}

// Load returns the cached UserInfo, fetching it on first use. On failure
// nothing is cached and ErrFetchFailed is returned.
func (c *Cache) Load(ctx context.Context) (UserInfo, error) {
	if info, err := c.Current(); err == nil {
		return info, nil
	}
	return c.do(ctx, "load", false)
}

// Reload always fetches and replaces the cached UserInfo. On failure the
// previous value stays cached.
func (c *Cache) Reload(ctx context.Context) (UserInfo, error) {
	return c.do(ctx, "reload", true)
}

// Current returns the cached UserInfo, or ErrNotLoaded.
func (c *Cache) Current() (UserInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info == nil {
		return UserInfo{}, ErrNotLoaded
	}
	return *c.info, nil
}

// Clear drops the cached value at session end.
func (c *Cache) Clear() {
	c.mu.Lock()
	had := c.info != nil
	c.info = nil
	c.gen++
	c.mu.Unlock()

	if had {
		c.stateChange("loaded", "cleared", "session end")
	}
}

// do runs one shared fetch per key and generation. The fetch is detached
// from the caller's cancellation so one caller giving up does not fail the
// others waiting on it; each caller still returns when its own ctx is done.
func (c *Cache) do(ctx context.Context, key string, force bool) (UserInfo, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprintf("%s/%d", key, gen), func() (any, error) {
		// A cached value may have arrived while waiting; only Reload ignores it.
		if !force {
			if info, err := c.Current(); err == nil {
				return info, nil
			}
		}
		return c.fetch(fetchCtx, gen)
	})

	select {
	case <-ctx.Done():
		return UserInfo{}, fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return UserInfo{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("Cache: shared in-flight fetch", "key", key)
		}
		return res.Val.(UserInfo), nil
	}
}

func (c *Cache) fetch(ctx context.Context, gen uint64) (UserInfo, error) {
	var info UserInfo
	start := time.Now()
	err := c.fetcher.Get(ctx, UserInfoPath, &info)
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.sessionID,
		Layer:     log.LayerFetch,
		Category:  log.CategoryLoad,
		Fetch: &log.FetchEvent{
			Method:   "GET",
			Path:     UserInfoPath,
			Duration: time.Since(start),
			Failed:   err != nil,
		},
	})
	if err != nil {
		c.logger.Warn("Cache: user info fetch failed", "error", err)
		c.events.Log(log.Event{
			Timestamp: time.Now(),
			SessionID: c.sessionID,
			Layer:     log.LayerSession,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Layer: log.LayerSession, Message: err.Error(), Context: "GET " + UserInfoPath},
		})
		return UserInfo{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.logger.Debug("Cache: discarding user info fetched before clear", "email", info.Email)
		return info, nil
	}
	old := "empty"
	if c.info != nil {
		old = "loaded"
	}
	c.info = &info
	c.mu.Unlock()

	c.stateChange(old, "loaded", info.Email)
	c.logger.Debug("Cache: user info loaded", "email", info.Email)
	return info, nil
}

func (c *Cache) stateChange(from, to, reason string) {
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.sessionID,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityUserInfo,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}
