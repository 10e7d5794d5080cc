package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	l.Component("persister").Info("stored document loaded",
		Int("version", 4),
		Strings("steps", []string{"legacy", "repair"}),
		Error(nil),
	)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(b))), &entry); err != nil {
		t.Fatalf("decode entry %q: %v", b, err)
	}
	if entry["component"] != "persister" || entry["message"] != "stored document loaded" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["version"] != float64(4) {
		t.Fatalf("expected version 4, got %v", entry["version"])
	}
	if steps, ok := entry["steps"].([]interface{}); !ok || len(steps) != 2 {
		t.Fatalf("expected steps array, got %v", entry["steps"])
	}
	if _, ok := entry["error"]; ok {
		t.Fatalf("nil error should not be logged: %v", entry)
	}
}

func TestInvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
