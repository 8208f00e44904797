package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, closer, err := New(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Debug().Str("k", "v").Msg("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, data)
	}
	if entry["message"] != "hello" || entry["k"] != "v" || entry["level"] != "debug" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_Level(t *testing.T) {
	log, _, err := New(Options{Level: "WARN"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if log.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", log.GetLevel())
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("New() should reject unknown level")
	}
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("New() should reject unknown format")
	}
}
