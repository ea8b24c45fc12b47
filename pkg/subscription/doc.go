// Package subscription keeps a user's subscription set consistent with the
// remote store while allowing rapid, overlapping edits.
//
// A Store holds the authoritative in-memory Snapshot. A Coordinator accepts
// MutationRequests, applies them optimistically to the Store, writes the full
// topic list remotely and rolls back on failure. Overlapping requests follow
// a restart-wins policy: each invocation takes a token from a generation
// counter, and only the invocation holding the current token when its remote
// write settles may commit or roll back.
//
// Rollback restores the snapshot taken before the first invocation of the
// current overlapping chain, so a failed request never leaves the optimistic
// state of an earlier, superseded request visible.
//
// Modes are client-local. The remote write carries topics only, and topics
// loaded from the remote store default to ModeInstant.
package subscription
