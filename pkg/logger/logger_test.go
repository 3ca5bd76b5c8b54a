package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"ERROR", ErrorLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogLevelFiltering(t *testing.T) {
	Initialize(Config{Level: WarnLevel, Component: "docsync"})
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below WarnLevel were not filtered: %q", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected warn and error messages in output: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	Initialize(Config{Level: InfoLevel, JSON: true, Component: "docsync"})
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("applied plan", Int("ops", 3), Bool("dry_run", false))

	line := strings.TrimSpace(buf.String())
	var entry Entry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, line)
	}
	if entry.Message != "applied plan" {
		t.Errorf("message = %q, want %q", entry.Message, "applied plan")
	}
	if entry.Component != "docsync" {
		t.Errorf("component = %q, want docsync", entry.Component)
	}
	if entry.Fields["ops"] != float64(3) {
		t.Errorf("ops field = %v, want 3", entry.Fields["ops"])
	}
}

func TestDryRunMarker(t *testing.T) {
	Initialize(Config{Level: InfoLevel, DryRun: true, Component: "docsync"})
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("would move file")

	if !strings.Contains(buf.String(), "[DRY-RUN]") {
		t.Errorf("expected [DRY-RUN] marker in output: %q", buf.String())
	}
}
