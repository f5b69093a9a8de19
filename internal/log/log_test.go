package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelDebug})
	logger.Debug("indexing document", "id", "chunk-42")

	out := buf.String()
	if !strings.Contains(out, "indexing document") {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, "id=chunk-42") {
		t.Errorf("expected attribute in output, got: %s", out)
	}
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{JSON: true})
	logger.Info("classified question", "tier", "moderate")

	out := buf.String()
	if !strings.Contains(out, `"msg":"classified question"`) {
		t.Errorf("expected JSON msg field, got: %s", out)
	}
	if !strings.Contains(out, `"tier":"moderate"`) {
		t.Errorf("expected JSON attribute, got: %s", out)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})
	logger.Info("should be dropped")
	logger.Warn("should be kept")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Errorf("info record leaked through warn-level logger: %s", out)
	}
	if !strings.Contains(out, "should be kept") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestNewNop_Discards(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}
	logger.Error("discarded", "err", "nothing")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{})
	logger.With("component", "router").Info("escalating")

	if !strings.Contains(buf.String(), "component=router") {
		t.Errorf("expected component context, got: %s", buf.String())
	}
}
