package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"ERR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Fatalf("parseLevel(%q)=%v, want %v", c.in, got, c.want)
		}
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("IDXPULSE_TEST_VAR", "set")
	if v := getenv("IDXPULSE_TEST_VAR", "fallback"); v != "set" {
		t.Fatalf("getenv: %q", v)
	}
	if v := getenv("IDXPULSE_TEST_MISSING", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback: %q", v)
	}
}

func TestInit_LevelFromEnv(t *testing.T) {
	_ = os.Unsetenv("LOG_LEVEL")
	_ = os.Unsetenv("LOG_PRETTY")
	Init()
	if L().GetLevel() != zerolog.InfoLevel {
		t.Fatalf("default level: %v", L().GetLevel())
	}

	t.Setenv("LOG_LEVEL", "debug")
	Init()
	if L().GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", L().GetLevel())
	}
}

func TestL_LazyInit(t *testing.T) {
	base = zerolog.Logger{}
	lg := L()
	if lg == nil {
		t.Fatalf("L() returned nil")
	}
	if lg.GetLevel() == zerolog.NoLevel {
		t.Fatalf("L() must initialize the level")
	}
}

func TestWith_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	old := base
	t.Cleanup(func() { base = old })
	base = zerolog.New(&buf).Level(zerolog.InfoLevel)

	log := With("planner")
	log.Info().Msg("discovery complete")

	out := buf.String()
	if !strings.Contains(out, `"component":"planner"`) {
		t.Fatalf("component tag missing: %s", out)
	}
	if !strings.Contains(out, "discovery complete") {
		t.Fatalf("message missing: %s", out)
	}
}
