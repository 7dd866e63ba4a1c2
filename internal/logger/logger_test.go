package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit_RejectsUnknownFormat(t *testing.T) {
	if err := Init(Config{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestInit_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "voicearena.log")
	if err := Init(Config{Level: "debug", Format: "json", File: path}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Infof("[test] hello %d", 1)
	Sync()
}

func TestSetOutput_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zapcore.WarnLevel)

	Infof("[test] 不应出现")
	Warnf("[test] 应该出现 %s", "warn")

	out := buf.String()
	if strings.Contains(out, "不应出现") {
		t.Errorf("info message leaked through warn level: %s", out)
	}
	if !strings.Contains(out, "应该出现 warn") {
		t.Errorf("warn message missing: %s", out)
	}
}
