package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hermes-notify/subsync/pkg/log"
)

func statsFixture(t *testing.T) string {
	t.Helper()
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	return createTestLogFile(t, []log.Event{
		mutationEvent(base, 1, "a", "digest", log.OutcomeApplied),
		mutationEvent(base.Add(time.Second), 2, "a", "instant", log.OutcomeApplied),
		mutationEvent(base.Add(2*time.Second), 1, "a", "digest", log.OutcomeSuperseded),
		mutationEvent(base.Add(3*time.Second), 2, "a", "instant", log.OutcomeRolledBack),
		{
			Timestamp: base.Add(4 * time.Second),
			SessionID: testSession,
			Layer:     log.LayerFetch,
			Category:  log.CategoryLoad,
			Fetch:     &log.FetchEvent{Method: "POST", Path: "/me/subscriptions", Failed: true},
		},
		{
			Timestamp: base.Add(5 * time.Second),
			SessionID: testSession,
			Layer:     log.LayerCoordinator,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Layer: log.LayerCoordinator, Message: "remote write failed"},
		},
	})
}

func TestStatsCountsOutcomes(t *testing.T) {
	stats, err := CollectStats(statsFixture(t), log.Filter{})
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}

	if stats.TotalEvents != 6 {
		t.Errorf("expected 6 events, got %d", stats.TotalEvents)
	}
	if stats.Outcomes[log.OutcomeApplied] != 2 {
		t.Errorf("expected 2 applied, got %d", stats.Outcomes[log.OutcomeApplied])
	}
	ts := stats.Topics["a"]
	if ts == nil {
		t.Fatal("expected stats for topic a")
	}
	if ts.Superseded != 1 || ts.RolledBack != 1 || ts.Committed != 0 {
		t.Errorf("unexpected topic stats: %+v", ts)
	}
}

func TestStatsCountsByLayer(t *testing.T) {
	stats, err := CollectStats(statsFixture(t), log.Filter{})
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}

	if stats.EventsByLayer[log.LayerCoordinator] != 5 {
		t.Errorf("expected 5 coordinator events, got %d", stats.EventsByLayer[log.LayerCoordinator])
	}
	if stats.EventsByLayer[log.LayerFetch] != 1 {
		t.Errorf("expected 1 fetch event, got %d", stats.EventsByLayer[log.LayerFetch])
	}
	if stats.FailedFetches != 1 || stats.Errors != 1 {
		t.Errorf("expected 1 failed fetch and 1 error, got %d/%d", stats.FailedFetches, stats.Errors)
	}
}

func TestStatsTimeRange(t *testing.T) {
	stats, err := CollectStats(statsFixture(t), log.Filter{})
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}

	if got := stats.TimeRange.End.Sub(stats.TimeRange.Start); got != 5*time.Second {
		t.Errorf("expected 5s range, got %s", got)
	}
	sess := stats.Sessions[testSession]
	if sess == nil || sess.Mutations != 4 {
		t.Errorf("expected 4 mutation events in session, got %+v", sess)
	}
}

func TestRunStatsOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := RunStats(statsFixture(t), log.Filter{}, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 6",
		"ROLLED_BACK:",
		"applied=2 committed=0 rolled_back=1 superseded=1",
		"[abc12345]",
		"Failed Fetches: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}
