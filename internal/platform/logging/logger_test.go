package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON, LevelInfo)

	logger.With("run_id", "run-1").Info("group merged", "kept_id", "team-a", "error", errors.New("boom"))
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, `"run_id":"run-1"`) {
		t.Fatalf("expected run_id field, got %s", out)
	}
	if !strings.Contains(out, `"kept_id":"team-a"`) {
		t.Fatalf("expected kept_id field, got %s", out)
	}
	if !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("expected error field, got %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level")
	}
}

func TestLogger_OddArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON, LevelDebug)

	logger.Warn("dangling", "only_key")
	if !strings.Contains(buf.String(), `"only_key":null`) {
		t.Fatalf("expected dangling key to be logged as null, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"warn":    LevelWarn,
		"error":   LevelError,
		"nonsens": LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q)=%s want %s", input, got, want)
		}
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	var l *Logger
	l.Info("nothing happens")
	if l.With("k", "v") == nil {
		t.Fatalf("With on nil logger must return a usable logger")
	}
}
