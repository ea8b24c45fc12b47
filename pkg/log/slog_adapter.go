package log

import (
	"context"
	"log/slog"
	"strings"
)

// SlogAdapter writes sync events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Fetch != nil:
		attrs = append(attrs,
			slog.String("method", event.Fetch.Method),
			slog.String("path", event.Fetch.Path),
			slog.Duration("duration", event.Fetch.Duration),
			slog.Bool("failed", event.Fetch.Failed),
		)
	case event.Mutation != nil:
		attrs = append(attrs,
			slog.Uint64("token", event.Mutation.Token),
			slog.String("topic", event.Mutation.Topic),
			slog.String("outcome", event.Mutation.Outcome.String()),
		)
		if event.Mutation.Mode != "" {
			attrs = append(attrs, slog.String("mode", event.Mutation.Mode))
		}
	case event.Snapshot != nil:
		attrs = append(attrs,
			slog.Int("count", len(event.Snapshot.Topics)),
			slog.String("topics", strings.Join(event.Snapshot.Topics, ",")),
		)
		if event.Snapshot.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Snapshot.Reason))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "sync", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
