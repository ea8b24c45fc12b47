package subscription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hermes-notify/subsync/pkg/fetch"
	"github.com/hermes-notify/subsync/pkg/log"
)

// SubscriptionsPath is the remote resource holding the topic list.
const SubscriptionsPath = "/me/subscriptions"

// Snapshot replacement reasons recorded in the event log.
const (
	reasonLoad     = "load"
	reasonReplace  = "replace"
	reasonApply    = "apply"
	reasonRollback = "rollback"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Logger receives operational logs. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives sync events. Nil disables event capture.
	EventLogger log.Logger

	// SessionID tags emitted events.
	SessionID string
}

// Store holds the live subscription snapshot. ReplaceAll is the only way the
// snapshot changes after a load.
type Store struct {
	fetcher fetch.Fetcher
	logger  *slog.Logger
	events  eventSink

	mu       sync.RWMutex
	snapshot Snapshot
	loaded   bool

	obsMu     sync.RWMutex
	observers []func(Snapshot)
}

// NewStore creates an empty, unloaded store reading from f.
func NewStore(f fetch.Fetcher, cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		fetcher: f,
		logger:  logger,
		events:  newEventSink(cfg.EventLogger, cfg.SessionID),
	}
}

// Load replaces the live snapshot with the remote topic list. On failure the
// previous snapshot is kept and ErrFetchFailed is returned.
//
// Load does not coordinate with a Coordinator's in-flight writes; a settling
// write may still overwrite the result. Once mutations may be in flight use
// Coordinator.Reload instead.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	snap, err := s.fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	s.replace(snap, reasonLoad)
	return snap, nil
}

// fetch reads the remote topic list without touching the live snapshot.
func (s *Store) fetch(ctx context.Context) (Snapshot, error) {
	var topics []string
	start := time.Now()
	err := s.fetcher.Get(ctx, SubscriptionsPath, &topics)
	s.events.fetch("GET", SubscriptionsPath, time.Since(start), err)
	if err != nil {
		s.logger.Warn("Store: load failed", "error", err)
		return Snapshot{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	snap := snapshotFromTopics(topics)
	s.logger.Debug("Store: loaded", "count", snap.Len())
	return snap, nil
}

// Current returns the live snapshot, or ErrNotLoaded before the first load.
func (s *Store) Current() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return Snapshot{}, ErrNotLoaded
	}
	return s.snapshot, nil
}

// Loaded reports whether a load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ReplaceAll atomically swaps the live snapshot. It marks the store loaded.
// Like Load, it bypasses any Coordinator and is meant for seeding a store
// before mutations start.
func (s *Store) ReplaceAll(snap Snapshot) {
	s.replace(snap, reasonReplace)
}

func (s *Store) replace(snap Snapshot, reason string) {
	s.mu.Lock()
	s.snapshot = snap
	s.loaded = true
	s.mu.Unlock()

	s.events.snapshot(snap, reason)

	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(snap)
	}
}

// OnChange registers fn to be called with the new snapshot after every
// replace. Observers run synchronously and must not call back into a
// Coordinator.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers[:len(s.observers):len(s.observers)], fn)
}
