package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	base := initLogger(&buf, Config{Level: "info", Format: "json"})
	NewComponentLogger(base, "pipeline").Info("capture_started")
	out := buf.String()
	if !strings.Contains(out, `"component":"pipeline"`) {
		t.Fatalf("expected component attribute, got %s", out)
	}
	if !strings.Contains(out, "capture_started") {
		t.Fatalf("expected message, got %s", out)
	}
}
