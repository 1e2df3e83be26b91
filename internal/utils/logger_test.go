package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevelAndStructuredLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	SetLoggerForTest(zerolog.New(buf))

	SetLogLevel("invalid-level") // should fall back to info without panic
	Info("hello", "k", "v", "dangling")
	Warn("warn", "n", 1)
	Error("err", "ok", true)

	if buf.Len() == 0 {
		t.Fatalf("expected log output")
	}
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Fatalf("expected key/value pair in output: %s", buf.String())
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetLoggerForTest(zerolog.New(buf))

	SetLogLevel("info")
	Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("expected debug output suppressed at info level")
	}

	SetLogLevel("debug")
	Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected debug output at debug level")
	}
	SetLogLevel("info")
}
