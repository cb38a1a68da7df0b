package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "k=v") {
		t.Errorf("expected warn line with fields, got %q", out)
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "loud")
	l.Debug("debug line")
	l.Info("info line")
	if strings.Contains(buf.String(), "debug line") {
		t.Error("debug should be filtered at default level")
	}
	if !strings.Contains(buf.String(), "info line") {
		t.Error("info should pass at default level")
	}
}

func TestWithPrefixBeforeInit(t *testing.T) {
	saved := Logger
	Logger = nil
	defer func() { Logger = saved }()

	l := WithPrefix("stream")
	if l == nil {
		t.Fatal("WithPrefix should never return nil")
	}
	l.Info("dropped")
}

func TestInitWritesFile(t *testing.T) {
	saved, savedFile := Logger, logFile
	defer func() { Logger, logFile = saved, savedFile }()

	dir := t.TempDir()
	if err := Init(dir, "debug"); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	WithPrefix("test").Info("hello")
	Close()

	matches, err := filepath.Glob(filepath.Join(dir, "marquee-*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing entry: %q", data)
	}
}
