package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupFormats(t *testing.T) {
	for _, format := range []string{"text", "json", "pretty"} {
		var buf bytes.Buffer
		log := Setup(&buf, format, "info")
		log.Info("hello", "key", "value")
		out := buf.String()
		if !strings.Contains(out, "hello") {
			t.Errorf("format %q: output %q missing message", format, out)
		}
		if !strings.Contains(out, "value") {
			t.Errorf("format %q: output %q missing attr", format, out)
		}
	}
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, "pretty", "warn")
	log.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info record emitted below level: %q", buf.String())
	}
	log.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestWithCarriesAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, "text", "info").With("session", "abc")
	log.Info("msg")
	if !strings.Contains(buf.String(), "session=abc") {
		t.Fatalf("bound attr missing: %q", buf.String())
	}
}
