package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		want    logrus.Level
		wantErr bool
	}{
		{"debug", logrus.DebugLevel, false},
		{"info", logrus.InfoLevel, false},
		{"WARN", logrus.WarnLevel, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		log, err := New(&bytes.Buffer{}, tt.level, "text")
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			continue
		}
		if err == nil && log.GetLevel() != tt.want {
			t.Errorf("New(%q) level = %v, want %v", tt.level, log.GetLevel(), tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "info", "json")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	log.WithField("port", "/dev/ttyUSB0").Info("Polling started")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q", buf.String())
	}
	if entry["port"] != "/dev/ttyUSB0" || entry["msg"] != "Polling started" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "info", "text")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	log.Debug("hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Debug entry written at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("Expected warning in output, got %q", out)
	}
}

func TestNewInvalidFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}
