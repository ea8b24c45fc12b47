package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hermes-notify/subsync/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints the matching events of a log file in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// eventType returns a short label for the event payload.
func eventType(event log.Event) string {
	switch {
	case event.Fetch != nil:
		return "Fetch"
	case event.Mutation != nil:
		return event.Mutation.Outcome.String()
	case event.Snapshot != nil:
		return "Snapshot"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// formatEvent writes a header line, payload details and a blank line.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [sess:%s] %s %s\n", ts, shortenID(event.SessionID), event.Layer.String(), eventType(event))

	switch {
	case event.Fetch != nil:
		f := event.Fetch
		status := "ok"
		if f.Failed {
			status = "failed"
		}
		fmt.Fprintf(w, "  %s %s (%s, %s)\n", f.Method, f.Path, formatDuration(f.Duration), status)
	case event.Mutation != nil:
		m := event.Mutation
		fmt.Fprintf(w, "  Token: %d\n", m.Token)
		if m.Mode != "" {
			fmt.Fprintf(w, "  Topic: %s -> %s\n", m.Topic, m.Mode)
		} else {
			fmt.Fprintf(w, "  Topic: %s (clear)\n", m.Topic)
		}
	case event.Snapshot != nil:
		s := event.Snapshot
		parts := make([]string, len(s.Topics))
		for i, topic := range s.Topics {
			parts[i] = topic
			if i < len(s.Modes) {
				parts[i] += ":" + s.Modes[i]
			}
		}
		fmt.Fprintf(w, "  Subscriptions (%d): %s\n", len(s.Topics), strings.Join(parts, " "))
		if s.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", s.Reason)
		}
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		e := event.Error
		fmt.Fprintf(w, "  Layer: %s\n", e.Layer.String())
		fmt.Fprintf(w, "  Message: %s\n", e.Message)
		if e.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", e.Context)
		}
	}

	fmt.Fprintln(w)
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
