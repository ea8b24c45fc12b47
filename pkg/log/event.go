package log

import (
	"time"
)

// Event represents a sync event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the session context (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Fetch       *FetchEvent       `cbor:"10,keyasint,omitempty"`
	Mutation    *MutationEvent    `cbor:"11,keyasint,omitempty"`
	Snapshot    *SnapshotEvent    `cbor:"12,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerFetch is the remote transport.
	LayerFetch Layer = 0
	// LayerStore is the subscription store.
	LayerStore Layer = 1
	// LayerCoordinator is the mutation coordinator.
	LayerCoordinator Layer = 2
	// LayerSession is the session info cache.
	LayerSession Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerFetch:
		return "FETCH"
	case LayerStore:
		return "STORE"
	case LayerCoordinator:
		return "COORDINATOR"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryLoad indicates a remote read.
	CategoryLoad Category = 0
	// CategoryMutation indicates a mutation lifecycle step.
	CategoryMutation Category = 1
	// CategoryState indicates a local state change.
	CategoryState Category = 2
	// CategoryError indicates a failure.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryLoad:
		return "LOAD"
	case CategoryMutation:
		return "MUTATION"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FetchEvent captures one remote request.
type FetchEvent struct {
	// Method is the HTTP-style method (GET, POST).
	Method string `cbor:"1,keyasint"`

	// Path is the endpoint path without version prefix.
	Path string `cbor:"2,keyasint"`

	// Duration is the time the request took (nanoseconds).
	Duration time.Duration `cbor:"3,keyasint,omitempty"`

	// Failed is set when the request returned an error.
	Failed bool `cbor:"4,keyasint,omitempty"`
}

// MutationEvent captures one step of a mutation invocation.
type MutationEvent struct {
	// Token is the invocation token of the mutation.
	Token uint64 `cbor:"1,keyasint"`

	// Topic is the mutated topic.
	Topic string `cbor:"2,keyasint"`

	// Mode is the requested mode name, empty for removals.
	Mode string `cbor:"3,keyasint,omitempty"`

	// Outcome is the lifecycle step.
	Outcome Outcome `cbor:"4,keyasint"`
}

// Outcome is a mutation lifecycle step.
type Outcome uint8

const (
	// OutcomeApplied means the optimistic snapshot was installed.
	OutcomeApplied Outcome = 0
	// OutcomeCommitted means the remote write succeeded for the current token.
	OutcomeCommitted Outcome = 1
	// OutcomeRolledBack means the remote write failed and the store was restored.
	OutcomeRolledBack Outcome = 2
	// OutcomeSuperseded means a newer invocation started before this one settled.
	OutcomeSuperseded Outcome = 3
	// OutcomeNoop means the request did not change the snapshot.
	OutcomeNoop Outcome = 4
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "APPLIED"
	case OutcomeCommitted:
		return "COMMITTED"
	case OutcomeRolledBack:
		return "ROLLED_BACK"
	case OutcomeSuperseded:
		return "SUPERSEDED"
	case OutcomeNoop:
		return "NOOP"
	default:
		return "UNKNOWN"
	}
}

// SnapshotEvent captures the subscription list after a replace.
type SnapshotEvent struct {
	// Topics lists the topics in snapshot order.
	Topics []string `cbor:"1,keyasint"`

	// Modes lists the mode names, parallel to Topics.
	Modes []string `cbor:"2,keyasint"`

	// Reason says why the snapshot was replaced (load, apply, rollback).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures session lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityUserInfo indicates a user info change.
	StateEntityUserInfo StateEntity = 0
	// StateEntitySubscriptions indicates a subscription store change.
	StateEntitySubscriptions StateEntity = 1
	// StateEntitySession indicates session start or end.
	StateEntitySession StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityUserInfo:
		return "USER_INFO"
	case StateEntitySubscriptions:
		return "SUBSCRIPTIONS"
	case StateEntitySession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
