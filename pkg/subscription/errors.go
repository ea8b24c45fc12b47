package subscription

import "errors"

var (
	// ErrNotLoaded is returned when the store is read before its first
	// successful load.
	ErrNotLoaded = errors.New("subscriptions not loaded")

	// ErrFetchFailed wraps a remote read failure.
	ErrFetchFailed = errors.New("fetch subscriptions failed")

	// ErrRemoteWriteFailed wraps a remote write failure. It is reported
	// through the Reporter, never returned by Mutate.
	ErrRemoteWriteFailed = errors.New("remote write failed")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrDuplicateTopic is returned when a snapshot would hold a topic twice.
	ErrDuplicateTopic = errors.New("duplicate topic")

	// ErrInvalidMode is returned when parsing an unknown mode name.
	ErrInvalidMode = errors.New("invalid mode")

	// errSuperseded marks an invocation whose token was replaced before its
	// remote write settled.
	errSuperseded = errors.New("superseded")
)
