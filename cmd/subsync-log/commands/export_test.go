package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hermes-notify/subsync/pkg/log"
)

func TestExportToJSONL(t *testing.T) {
	now := time.Now()
	path := createTestLogFile(t, []log.Event{
		mutationEvent(now, 1, "a", "digest", log.OutcomeApplied),
		mutationEvent(now.Add(time.Millisecond), 1, "a", "digest", log.OutcomeCommitted),
	})

	var buf bytes.Buffer
	if err := RunExport(path, log.Filter{}, "jsonl", "", &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if decoded["SessionID"] != testSession {
		t.Errorf("expected session ID in JSON, got %v", decoded["SessionID"])
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		mutationEvent(time.Now(), 4, "billing", "instant", log.OutcomeSuperseded),
	})

	output := filepath.Join(t.TempDir(), "out.csv")
	if err := RunExport(path, log.Filter{}, "csv", output, nil); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,session_id,layer") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "COORDINATOR,MUTATION,SUPERSEDED,4,billing,instant") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, nil)
	if err := RunExport(path, log.Filter{}, "xml", "", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}
