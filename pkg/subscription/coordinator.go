package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hermes-notify/subsync/pkg/fetch"
	"github.com/hermes-notify/subsync/pkg/log"
)

// MutationFailure describes a mutation whose remote write failed while it
// still held the current token. The store has already been rolled back.
type MutationFailure struct {
	Topic string
	Mode  *Mode
	Token uint64
	// Err wraps ErrRemoteWriteFailed and the transport error.
	Err error
}

// Reporter receives failed mutations. It is called without coordinator
// locks held.
type Reporter interface {
	MutationFailed(MutationFailure)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(MutationFailure)

// MutationFailed calls f.
func (f ReporterFunc) MutationFailed(m MutationFailure) {
	f(m)
}

type noopReporter struct{}

func (noopReporter) MutationFailed(MutationFailure) {}

// Config configures a Coordinator.
type Config struct {
	// WriteTimeout bounds a single remote write. Zero means no timeout.
	WriteTimeout time.Duration

	// Reporter is notified of rolled-back mutations. Nil drops reports.
	Reporter Reporter

	// Logger receives operational logs. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives sync events. Nil disables event capture.
	EventLogger log.Logger

	// SessionID tags emitted events.
	SessionID string
}

// writeBody is the remote write payload. Modes are not sent.
type writeBody struct {
	Subscriptions []string `json:"subscriptions"`
}

// invocation is one in-flight mutation past its optimistic apply.
type invocation struct {
	token uint64
	req   MutationRequest
	after Snapshot
}

// Coordinator applies mutations optimistically and reconciles them with the
// remote store using restart-wins tokens.
type Coordinator struct {
	store    *Store
	fetcher  fetch.Fetcher
	config   Config
	reporter Reporter
	logger   *slog.Logger
	events   eventSink

	// mu guards the token and chain state and orders every store write the
	// coordinator makes.
	mu    sync.Mutex
	token uint64

	// baseline is the pre-mutation snapshot of the first invocation in the
	// current overlapping chain. chained is true until the invocation
	// holding the current token settles.
	baseline Snapshot
	chained  bool

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator writing through f and mutating store.
func NewCoordinator(store *Store, f fetch.Fetcher, cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = noopReporter{}
	}
	return &Coordinator{
		store:    store,
		fetcher:  f,
		config:   cfg,
		reporter: reporter,
		logger:   logger,
		events:   newEventSink(cfg.EventLogger, cfg.SessionID),
	}
}

// Mutate applies req optimistically and blocks until its remote write
// settles. Remote write failures are recovered by rollback and reported
// through the Reporter; Mutate itself returns only ErrInvalidTopic or
// ErrNotLoaded.
func (c *Coordinator) Mutate(ctx context.Context, req MutationRequest) error {
	inv, err := c.begin(req)
	if err != nil || inv == nil {
		return err
	}
	c.write(ctx, inv)
	return nil
}

// Submit applies req optimistically and performs the remote write in the
// background. It returns once the store reflects req.
func (c *Coordinator) Submit(ctx context.Context, req MutationRequest) error {
	inv, err := c.begin(req)
	if err != nil || inv == nil {
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.write(ctx, inv)
	}()
	return nil
}

// Wait blocks until every background write started by Submit has settled.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Generation returns the current invocation token.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Reload reads the remote topic list and installs it. A successful reload
// supersedes every in-flight mutation; their outcomes are discarded.
func (c *Coordinator) Reload(ctx context.Context) (Snapshot, error) {
	snap, err := c.store.fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token++
	c.chained = false
	c.baseline = Snapshot{}
	c.store.replace(snap, reasonLoad)
	return snap, nil
}

// begin performs the synchronous part of a mutation: token, snapshot,
// apply and optimistic replace. It returns nil for a no-op.
func (c *Coordinator) begin(req MutationRequest) (*invocation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	before, err := c.store.Current()
	if err != nil {
		return nil, err
	}

	// Every call takes a token, so even a no-op supersedes in-flight writes.
	c.token++

	after, changed := before.Apply(req)
	if !changed {
		// The store already reflects the newest request; the chain ends here
		// without a remote write.
		c.chained = false
		c.baseline = Snapshot{}
		c.events.mutation(c.token, req, log.OutcomeNoop)
		c.logger.Debug("Coordinator: no-op", "topic", req.Topic, "token", c.token)
		return nil, nil
	}

	if !c.chained {
		c.baseline = before
		c.chained = true
	}
	c.store.replace(after, reasonApply)

	c.events.mutation(c.token, req, log.OutcomeApplied)
	c.logger.Debug("Coordinator: applied", "topic", req.Topic, "mode", req.modeName(), "token", c.token)

	return &invocation{token: c.token, req: req, after: after}, nil
}

// write sends the full topic list and settles the invocation.
func (c *Coordinator) write(ctx context.Context, inv *invocation) {
	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.fetcher.Post(ctx, SubscriptionsPath, writeBody{Subscriptions: inv.after.Topics()}, nil)
	c.events.fetch("POST", SubscriptionsPath, time.Since(start), err)

	if serr := c.settle(inv, err); errors.Is(serr, errSuperseded) {
		c.logger.Debug("Coordinator: superseded", "topic", inv.req.Topic, "token", inv.token, "write_error", err)
	}
}

// settle commits or rolls back inv if it still holds the current token.
// It returns errSuperseded otherwise.
func (c *Coordinator) settle(inv *invocation, writeErr error) error {
	c.mu.Lock()
	if inv.token != c.token {
		c.mu.Unlock()
		c.events.mutation(inv.token, inv.req, log.OutcomeSuperseded)
		return errSuperseded
	}

	c.chained = false
	if writeErr == nil {
		c.baseline = Snapshot{}
		c.mu.Unlock()
		c.events.mutation(inv.token, inv.req, log.OutcomeCommitted)
		c.logger.Debug("Coordinator: committed", "topic", inv.req.Topic, "token", inv.token)
		return nil
	}

	baseline := c.baseline
	c.baseline = Snapshot{}
	c.store.replace(baseline, reasonRollback)
	c.mu.Unlock()

	failure := MutationFailure{
		Topic: inv.req.Topic,
		Mode:  inv.req.Mode,
		Token: inv.token,
		Err:   fmt.Errorf("%w: %w", ErrRemoteWriteFailed, writeErr),
	}
	c.events.mutation(inv.token, inv.req, log.OutcomeRolledBack)
	c.events.failure(log.LayerCoordinator, failure.Err, inv.req.String())
	c.logger.Warn("Coordinator: rolled back", "topic", inv.req.Topic, "token", inv.token, "error", writeErr)
	c.reporter.MutationFailed(failure)
	return nil
}
