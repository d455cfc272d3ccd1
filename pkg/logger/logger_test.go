package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/wonny/threes/backend/pkg/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantLevel zerolog.Level
	}{
		{"debug level", &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}, zerolog.DebugLevel},
		{"info level", &config.Config{Env: "production", LogLevel: "info", LogFormat: "json"}, zerolog.InfoLevel},
		{"warn level", &config.Config{Env: "staging", LogLevel: "warn", LogFormat: "console"}, zerolog.WarnLevel},
		{"unknown level", &config.Config{Env: "production", LogLevel: "loud", LogFormat: "json"}, zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.cfg)
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}
			if got := logger.Zerolog().GetLevel(); got != tt.wantLevel {
				t.Errorf("Expected level %v, got %v", tt.wantLevel, got)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Errorf("shown %d", 2)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[1]["message"] != "shown 2" {
		t.Errorf("Unexpected message %v", lines[1]["message"])
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug").
		WithModule("scoring").
		WithField("code", "005930").
		WithFields(map[string]interface{}{"tier": "cheap"}).
		WithError(errors.New("boom"))

	log.Info("scored")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line["module"] != "scoring" {
		t.Errorf("module = %v", line["module"])
	}
	if line["code"] != "005930" {
		t.Errorf("code = %v", line["code"])
	}
	if line["tier"] != "cheap" {
		t.Errorf("tier = %v", line["tier"])
	}
	if line["error"] != "boom" {
		t.Errorf("error = %v", line["error"])
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	// must not panic
	log.WithModule("x").WithField("a", 1).Infof("nothing %s", "here")
}
