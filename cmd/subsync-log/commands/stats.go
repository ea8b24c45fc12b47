package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hermes-notify/subsync/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	Outcomes         map[log.Outcome]int
	Sessions         map[string]*SessionStats
	Topics           map[string]*TopicStats
	FailedFetches    int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Mutations int
}

// TopicStats counts mutation outcomes for one topic.
type TopicStats struct {
	Applied    int
	Committed  int
	RolledBack int
	Superseded int
}

// CollectStats reads matching events and aggregates them.
func CollectStats(path string, filter log.Filter) (*Stats, error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		Outcomes:         make(map[log.Outcome]int),
		Sessions:         make(map[string]*SessionStats),
		Topics:           make(map[string]*TopicStats),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}

	if m := event.Mutation; m != nil {
		sess.Mutations++
		s.Outcomes[m.Outcome]++
		ts, ok := s.Topics[m.Topic]
		if !ok {
			ts = &TopicStats{}
			s.Topics[m.Topic] = ts
		}
		switch m.Outcome {
		case log.OutcomeApplied:
			ts.Applied++
		case log.OutcomeCommitted:
			ts.Committed++
		case log.OutcomeRolledBack:
			ts.RolledBack++
		case log.OutcomeSuperseded:
			ts.Superseded++
		}
	}
	if event.Fetch != nil && event.Fetch.Failed {
		s.FailedFetches++
	}
	if event.Error != nil {
		s.Errors++
	}
}

// RunStats prints statistics about the log file.
func RunStats(path string, filter log.Filter, w io.Writer) error {
	stats, err := CollectStats(path, filter)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Subscription Sync Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerFetch, log.LayerStore, log.LayerCoordinator, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-13s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Mutation Outcomes:")
	for _, o := range []log.Outcome{log.OutcomeApplied, log.OutcomeCommitted, log.OutcomeRolledBack, log.OutcomeSuperseded, log.OutcomeNoop} {
		if count := stats.Outcomes[o]; count > 0 {
			fmt.Fprintf(w, "  %-13s %d\n", o.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Topics) > 0 {
		topics := make([]string, 0, len(stats.Topics))
		for t := range stats.Topics {
			topics = append(topics, t)
		}
		sort.Strings(topics)

		fmt.Fprintln(w, "Topics:")
		for _, t := range topics {
			ts := stats.Topics[t]
			fmt.Fprintf(w, "  %-20s applied=%d committed=%d rolled_back=%d superseded=%d\n",
				t, ts.Applied, ts.Committed, ts.RolledBack, ts.Superseded)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, %d mutation events, duration %s\n",
				shortenID(s.id), s.stats.Events, s.stats.Mutations, duration)
		}
	}

	if stats.FailedFetches > 0 || stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Failed Fetches: %d\n", stats.FailedFetches)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
