// Package account composes the per-session sync components: the user info
// cache, the subscription store and the mutation coordinator, all bound to
// one session ID and one fetcher.
package account

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hermes-notify/subsync/pkg/fetch"
	"github.com/hermes-notify/subsync/pkg/log"
	"github.com/hermes-notify/subsync/pkg/session"
	"github.com/hermes-notify/subsync/pkg/subscription"
)

type options struct {
	sessionID    string
	logger       *slog.Logger
	events       log.Logger
	reporter     subscription.Reporter
	writeTimeout time.Duration
}

// Option configures a Session.
type Option func(*options)

// WithSessionID sets the session ID instead of generating one.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventLogger sets the sync event logger.
func WithEventLogger(l log.Logger) Option {
	return func(o *options) { o.events = l }
}

// WithReporter sets the receiver of rolled-back mutations.
func WithReporter(r subscription.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithWriteTimeout bounds each remote subscription write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// Session owns the sync state of one signed-in user.
type Session struct {
	id     string
	logger *slog.Logger
	events log.Logger

	info  *session.Cache
	store *subscription.Store
	coord *subscription.Coordinator
}

// New builds a session reading and writing through f.
func New(f fetch.Fetcher, opts ...Option) *Session {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionID == "" {
		o.sessionID = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger := o.logger.With("session_id", o.sessionID)

	store := subscription.NewStore(f, subscription.StoreConfig{
		Logger:      logger,
		EventLogger: o.events,
		SessionID:   o.sessionID,
	})
	return &Session{
		id:     o.sessionID,
		logger: logger,
		events: log.OrNoop(o.events),
		info: session.New(f, session.Config{
			Logger:      logger,
			EventLogger: o.events,
			SessionID:   o.sessionID,
		}),
		store: store,
		coord: subscription.NewCoordinator(store, f, subscription.Config{
			WriteTimeout: o.writeTimeout,
			Reporter:     o.reporter,
			Logger:       logger,
			EventLogger:  o.events,
			SessionID:    o.sessionID,
		}),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// UserInfo returns the user info cache.
func (s *Session) UserInfo() *session.Cache {
	return s.info
}

// Store returns the subscription store.
func (s *Session) Store() *subscription.Store {
	return s.store
}

// Coordinator returns the mutation coordinator.
func (s *Session) Coordinator() *subscription.Coordinator {
	return s.coord
}

// Start loads user info and subscriptions concurrently. It returns the
// first failure; a component that loaded successfully stays loaded.
// Subscriptions load through the Coordinator, so a restart supersedes any
// mutation still in flight.
func (s *Session) Start(ctx context.Context) error {
	s.stateChange("", "starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.info.Load(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.coord.Reload(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("Session: start failed", "error", err)
		s.stateChange("starting", "degraded")
		return err
	}

	s.logger.Info("Session: started")
	s.stateChange("starting", "active")
	return nil
}

// End waits for background writes to settle and drops cached user info.
func (s *Session) End() {
	s.coord.Wait()
	s.info.Clear()
	s.logger.Info("Session: ended")
	s.stateChange("active", "ended")
}

func (s *Session) stateChange(from, to string) {
	s.events.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: from,
			NewState: to,
		},
	})
}
