package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("session selected", "session", "42")

	if !strings.Contains(stderr.String(), "session selected") {
		t.Errorf("stderr output missing message: %q", stderr.String())
	}

	// File output is JSON.
	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if entry["msg"] != "session selected" {
		t.Errorf("file msg = %v", entry["msg"])
	}
	if entry["session"] != "42" {
		t.Errorf("file session attr = %v", entry["session"])
	}
}

func TestSetupLoggerLevelFiltering(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("noise")
	logger.Info("still noise")
	logger.Warn("kept")

	if strings.Contains(stderr.String(), "noise") {
		t.Errorf("level filtering failed: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "kept") {
		t.Errorf("warn message missing: %q", stderr.String())
	}
}

func TestSetupLoggerBadFileFallsBack(t *testing.T) {
	logger, cleanup := SetupLogger("/nonexistent-dir/deeply/nested/sakhi.log", slog.LevelInfo)
	defer cleanup()

	if logger == nil {
		t.Fatal("expected a stderr-only logger fallback")
	}
	// Logging must not panic.
	logger.Info("fallback works")
}
