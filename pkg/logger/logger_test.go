package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if err := Init(tt.level, ""); err != nil {
				t.Fatalf("Init(%q) error = %v", tt.level, err)
			}
			if Log == nil {
				t.Fatal("Log is nil after Init")
			}
			if !Log.Core().Enabled(tt.want) {
				t.Errorf("level %v not enabled for Init(%q)", tt.want, tt.level)
			}
			if tt.want > zapcore.DebugLevel && Log.Core().Enabled(tt.want-1) {
				t.Errorf("level %v unexpectedly enabled for Init(%q)", tt.want-1, tt.level)
			}
		})
	}
}

func TestInit_WithLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "tracker.log")

	if err := Init("info", logFile); err != nil {
		t.Fatalf("Init with log file error = %v", err)
	}

	Log.Info("write something")
	if err := Sync(); err != nil {
		// Sync on stdout can fail on some platforms; the file path matters here.
		t.Logf("sync returned: %v", err)
	}
}

func TestSync_NilLogger(t *testing.T) {
	old := Log
	Log = nil
	defer func() { Log = old }()

	if err := Sync(); err != nil {
		t.Errorf("Sync() with nil logger error = %v", err)
	}
}
