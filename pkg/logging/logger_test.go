package logging

import (
	"os"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("test-component")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.component != "test-component" {
		t.Errorf("Expected component 'test-component', got %q", logger.component)
	}

	if logger.sessionID == "" {
		t.Error("Expected non-empty session ID")
	}

	if logger.logPath == "" {
		t.Error("Expected non-empty log path")
	}

	if _, err := os.Stat(logger.logPath); os.IsNotExist(err) {
		t.Errorf("Log file does not exist at %s", logger.logPath)
	}
}

func TestLoggerLevels(t *testing.T) {
	logger, err := NewLogger("levels")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)

	data, err := os.ReadFile(logger.logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	content := string(data)
	for _, want := range []string{"[DEBUG] debug 1", "[INFO] info 2", "[WARN] warn 3", "[ERROR] error 4", "[levels]"} {
		if !strings.Contains(content, want) {
			t.Errorf("Log file missing %q", want)
		}
	}
}

func TestSessionIDStable(t *testing.T) {
	a, _ := NewLogger("a")
	defer a.Close()
	b, _ := NewLogger("b")
	defer b.Close()

	if a.SessionID() != b.SessionID() {
		t.Errorf("Expected shared session ID, got %q and %q", a.SessionID(), b.SessionID())
	}
}
