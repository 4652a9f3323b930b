package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		ok       bool
	}{
		{"debug", Debug, true},
		{"INFO", Info, true},
		{" warn ", Warning, true},
		{"warning", Warning, true},
		{"error", Error, true},
		{"fatal", Critical, true},
		{"verbose", NotSet, false},
	}

	for _, tt := range tests {
		level, ok := ParseLevel(tt.input)
		if level != tt.expected || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, level, ok, tt.expected, tt.ok)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "test")
	logger.SetLogLevel(Info)

	logger.Debug("hidden", "k", "v")
	logger.Info("generation dispatched", "model", "gemini-1.5-flash", "provider", "google")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level, got %q", out)
	}
	if !strings.Contains(out, "[test] ") {
		t.Errorf("missing prefix in %q", out)
	}
	if !strings.Contains(out, "[INFO] generation dispatched model=gemini-1.5-flash provider=google") {
		t.Errorf("unexpected formatting: %q", out)
	}
}

func TestLogger_FollowsProcessLevel(t *testing.T) {
	previous := CurrentLevel()
	defer SetLogLevel(previous)

	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "test")

	SetLogLevel(Error)
	logger.Warn("dropped")
	if buf.Len() != 0 {
		t.Errorf("warn should be dropped at error level, got %q", buf.String())
	}

	SetLogLevel(Debug)
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn should be written at debug level, got %q", buf.String())
	}
}

func TestFormatMessage_OddKeyvals(t *testing.T) {
	got := formatMessage("WARN", "msg", "a", 1, "dangling")
	if got != "[WARN] msg a=1" {
		t.Errorf("formatMessage() = %q", got)
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
}
