package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerFallsBackOnBadInput(t *testing.T) {
	log, atom, err := NewLogger(Config{Level: "loud", Format: "xml"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() { _ = log.Sync() }()

	if atom.Level() != zapcore.InfoLevel {
		t.Errorf("level = %s, want info", atom.Level())
	}
}

func TestApplyLevel(t *testing.T) {
	_, atom, err := NewLogger(Config{Level: "info", Format: "json", OutputPath: "stderr"})
	if err != nil {
		t.Fatal(err)
	}

	changed, err := ApplyLevel(atom, "debug")
	if err != nil || !changed {
		t.Fatalf("ApplyLevel(debug) = %v, %v", changed, err)
	}
	if !atom.Enabled(zapcore.DebugLevel) {
		t.Error("debug should be enabled after ApplyLevel")
	}

	changed, _ = ApplyLevel(atom, "debug")
	if changed {
		t.Error("same level should report no change")
	}

	if _, err := ApplyLevel(atom, "nope"); err == nil {
		t.Error("expected error for unknown level")
	}
}
