package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewFileOnlyWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "campustui.log")
	logger, err := NewFileOnly(path, "north", zapcore.DebugLevel)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello", zap.String("k", "v"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if entry["msg"] != "hello" || entry["institute"] != "north" || entry["k"] != "v" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("entry has no ts field")
	}
}

func TestNewCreatesLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "campusd.log")
	logger, err := New(path, "main")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("started")
	_ = logger.Sync()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("log file is empty")
	}
}
