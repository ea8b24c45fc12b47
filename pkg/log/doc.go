// Package log provides structured sync event logging for subsync.
//
// This package defines the Logger interface and Event types for capturing
// what the session cache, subscription store and mutation coordinator do:
// loads, optimistic applies, commits, rollbacks and superseded invocations.
// It is separate from operational logging (slog) - event capture provides a
// complete machine-readable trace for debugging flicker and rollback reports.
//
// # Basic Usage
//
// Applications configure event logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	opts = append(opts, account.WithEventLogger(log.NewSlogAdapter(slog.Default())))
//
//	// For production: write to binary file
//	fl, _ := log.NewFileLogger("/var/log/subsync/session.slog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
// Events are captured at several layers:
//   - Fetch: remote reads and writes (FetchEvent)
//   - Store: snapshot replacement (SnapshotEvent)
//   - Coordinator: mutation lifecycle (MutationEvent)
//   - Session: user info lifecycle (StateChangeEvent)
//
// Failures at any layer use ErrorEventData.
//
// # File Format
//
// Log files use CBOR encoding with integer keys and the .slog extension.
// The subsync-log CLI tool provides viewing, statistics and export.
package log
