package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup_DefaultsToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Output: buf})

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("Expected global level info, got %v", zerolog.GlobalLevel())
	}
}

func TestSetup_Version(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: "info", Output: buf, Version: "1.2.3"})
	logger.Info().Msg("started")

	if !strings.Contains(buf.String(), `"version":"1.2.3"`) {
		t.Errorf("Expected version field, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "info", Output: buf})

	logger := NewLogger("pagination")
	logger.Info().Str("run_id", "abc").Msg("retrieval complete")

	output := buf.String()
	for _, want := range []string{`"component":"pagination"`, `"run_id":"abc"`, "retrieval complete"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got %q", want, output)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "warn", Output: buf})

	logger := NewLogger("enrich")
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("Messages below warn should be filtered, got %q", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("Warn and error messages should be included, got %q", output)
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: "info", Pretty: true, Output: buf})
	logger.Info().Msg("pretty message")

	output := buf.String()
	if !strings.Contains(output, "pretty message") {
		t.Errorf("Expected output to contain message, got %q", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("Pretty output should not be JSON, got %q", output)
	}
}
