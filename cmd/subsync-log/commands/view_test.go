package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hermes-notify/subsync/pkg/log"
)

const testSession = "abc12345-6789-0123-4567-890abcdef012"

// createTestLogFile writes events to a fresh log file and returns its path.
func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+log.FileExtension)
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func mutationEvent(ts time.Time, token uint64, topic, mode string, outcome log.Outcome) log.Event {
	return log.Event{
		Timestamp: ts,
		SessionID: testSession,
		Layer:     log.LayerCoordinator,
		Category:  log.CategoryMutation,
		Mutation:  &log.MutationEvent{Token: token, Topic: topic, Mode: mode, Outcome: outcome},
	}
}

func TestFormatMutationEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := mutationEvent(ts, 7, "billing", "digest", log.OutcomeRolledBack)

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "2026-01-28T10:15:32.123456Z") {
		t.Errorf("expected microsecond timestamp, got: %s", output)
	}
	if !strings.Contains(output, "[sess:abc12345]") {
		t.Errorf("expected shortened session ID, got: %s", output)
	}
	if !strings.Contains(output, "COORDINATOR ROLLED_BACK") {
		t.Errorf("expected layer and outcome, got: %s", output)
	}
	if !strings.Contains(output, "Token: 7") {
		t.Errorf("expected token, got: %s", output)
	}
	if !strings.Contains(output, "billing -> digest") {
		t.Errorf("expected topic and mode, got: %s", output)
	}
}

func TestFormatClearMutation(t *testing.T) {
	event := mutationEvent(time.Now(), 3, "news", "", log.OutcomeApplied)

	var buf bytes.Buffer
	formatEvent(&buf, event)

	if !strings.Contains(buf.String(), "news (clear)") {
		t.Errorf("expected clear marker, got: %s", buf.String())
	}
}

func TestFormatFetchEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: testSession,
		Layer:     log.LayerFetch,
		Category:  log.CategoryLoad,
		Fetch:     &log.FetchEvent{Method: "GET", Path: "/me/subscriptions", Duration: 2500 * time.Microsecond, Failed: true},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "GET /me/subscriptions") {
		t.Errorf("expected method and path, got: %s", output)
	}
	if !strings.Contains(output, "2.500ms") {
		t.Errorf("expected duration, got: %s", output)
	}
	if !strings.Contains(output, "failed") {
		t.Errorf("expected failure marker, got: %s", output)
	}
}

func TestFormatSnapshotEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: testSession,
		Layer:     log.LayerStore,
		Category:  log.CategoryState,
		Snapshot: &log.SnapshotEvent{
			Topics: []string{"a", "b"},
			Modes:  []string{"instant", "digest"},
			Reason: "rollback",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Subscriptions (2): a:instant b:digest") {
		t.Errorf("expected subscription list, got: %s", output)
	}
	if !strings.Contains(output, "Reason: rollback") {
		t.Errorf("expected reason, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: testSession,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: "ACTIVE",
			NewState: "ENDED",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)

	if !strings.Contains(buf.String(), "ACTIVE -> ENDED") {
		t.Errorf("expected state transition, got: %s", buf.String())
	}
}

func TestRunViewFiltersByTopic(t *testing.T) {
	now := time.Now()
	path := createTestLogFile(t, []log.Event{
		mutationEvent(now, 1, "a", "digest", log.OutcomeApplied),
		mutationEvent(now, 2, "b", "digest", log.OutcomeApplied),
		mutationEvent(now, 1, "a", "digest", log.OutcomeSuperseded),
	})

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Topic: "a"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if strings.Contains(output, "Topic: b") {
		t.Errorf("expected topic b filtered out, got: %s", output)
	}
	if strings.Count(output, "Topic: a") != 2 {
		t.Errorf("expected two events for topic a, got: %s", output)
	}
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Layer
		wantErr bool
	}{
		{"fetch", log.LayerFetch, false},
		{"STORE", log.LayerStore, false},
		{"Coordinator", log.LayerCoordinator, false},
		{"session", log.LayerSession, false},
		{"wire", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLayer(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLayer(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLayer(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Category
		wantErr bool
	}{
		{"load", log.CategoryLoad, false},
		{"MUTATION", log.CategoryMutation, false},
		{"state", log.CategoryState, false},
		{"error", log.CategoryError, false},
		{"message", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseCategory(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildFilter(t *testing.T) {
	filter, err := BuildFilter(FilterOptions{
		SessionID: testSession,
		Topic:     "a",
		TimeStart: "2026-01-28T10:00:00Z",
		Layer:     "coordinator",
	})
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}
	if filter.SessionID != testSession || filter.Topic != "a" {
		t.Errorf("unexpected filter: %+v", filter)
	}
	if filter.Layer == nil || *filter.Layer != log.LayerCoordinator {
		t.Errorf("expected coordinator layer, got %v", filter.Layer)
	}
	if filter.TimeStart == nil || filter.TimeStart.Hour() != 10 {
		t.Errorf("expected parsed start time, got %v", filter.TimeStart)
	}
	if filter.Category != nil || filter.TimeEnd != nil {
		t.Errorf("expected unset fields to stay nil")
	}

	if _, err := BuildFilter(FilterOptions{TimeEnd: "yesterday"}); err == nil {
		t.Error("expected error for malformed time")
	}
}
