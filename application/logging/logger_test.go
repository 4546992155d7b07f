package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogLogger_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Info("registered client", "group", "teamA", "vip", "10.0.0.2")

	out := buf.String()
	if !strings.Contains(out, "registered client") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "group=teamA") {
		t.Fatalf("expected group field in output, got %q", out)
	}
}

func TestSlogLogger_With_AttachesFieldsToSubsequentCalls(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	scoped := base.With("addr", "203.0.113.5:4000")

	scoped.Warn("dropping packet")

	if !strings.Contains(buf.String(), "addr=203.0.113.5:4000") {
		t.Fatalf("expected addr field carried from With, got %q", buf.String())
	}
}
