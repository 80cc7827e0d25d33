package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

// TestParseLevel verifies level names map to slog levels
func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{"", LevelInfo, false},
		{" info ", LevelInfo, false},
		{"warning", LevelWarning, false},
		{"WARN", LevelWarning, false},
		{"error", LevelError, false},
		{"fatal", LevelFatal, false},
		{"loud", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// TestErrorIncrementsCounter verifies counters move even when output is filtered
func TestErrorIncrementsCounter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := GetLevel()
	defer SetLevel(prev)

	before := Snapshot()
	Error("generation failed", "seq", 1)
	Warn("slow encoder")
	after := Snapshot()

	if after.Errors != before.Errors+1 {
		t.Errorf("Errors = %d, want %d", after.Errors, before.Errors+1)
	}
	if after.Warnings != before.Warnings+1 {
		t.Errorf("Warnings = %d, want %d", after.Warnings, before.Warnings+1)
	}

	var line map[string]any
	if err := json.Unmarshal(bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0], &line); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if line["msg"] != "generation failed" {
		t.Errorf("msg = %v, want %q", line["msg"], "generation failed")
	}
}

// TestSetLevelFilters verifies debug output is dropped at INFO
func TestSetLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := GetLevel()
	defer SetLevel(prev)

	SetLevel(LevelInfo)
	Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output written at INFO: %q", buf.String())
	}

	SetLevel(LevelDebug)
	Debug("shown")
	if buf.Len() == 0 {
		t.Error("debug output missing at DEBUG")
	}
}
