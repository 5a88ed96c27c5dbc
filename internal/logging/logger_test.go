// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"text", "json", "", "unknown"} {
		logger, closer := NewLogger("info", format, "")
		if logger == nil {
			t.Errorf("expected non-nil logger for format %q", format)
		}
		closer.Close()
	}
}

func TestNewLogger_AllLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "warning", "error", ""}
	for _, level := range levels {
		logger, closer := NewLogger(level, "text", "")
		if logger == nil {
			t.Errorf("expected non-nil logger for level %q", level)
		}
		closer.Close()
	}
}

func TestNewLogger_WithFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "oneway.log")

	logger, closer := NewLogger("info", "json", logFile)
	logger.Info("test message", "key", "value")
	closer.Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("log file does not contain the message: %q", data)
	}
}

func TestNewLogger_UnwritableFileFallsBack(t *testing.T) {
	logger, closer := NewLogger("info", "text", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	defer closer.Close()
	if logger == nil {
		t.Fatal("expected non-nil logger even when the file cannot be opened")
	}
	logger.Info("still works")
}
