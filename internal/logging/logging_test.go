package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStartupLogger(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(&buf)

	NewStartupLogger("comix").
		CommitHash("abc123").
		SSMParam("token", "/comix/token").
		SSMParam("unused", "").
		Feature("html", true).
		Config("endpoint", "http://localhost").
		Log()

	out := buf.String()
	for _, want := range []string{`"name":"comix"`, `"commit":"abc123"`, `"token":"/comix/token"`, `"html":true`, `"endpoint":"http://localhost"`, "Startup configuration"} {
		if !strings.Contains(out, want) {
			t.Errorf("startup event missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "unused") {
		t.Errorf("empty SSM parameter should be omitted: %s", out)
	}
}
