package app

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestPrettyHandler_PlainLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false))

	log.With("component", "api").WithGroup("req").Warn("http.request",
		"method", "GET", "status", 404, "err", errors.New("no such key"))
	log.Debug("dropped")

	got := buf.String()
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", got)
	}
	for _, want := range []string{
		"[WARN] http.request",
		"component=api",
		"req.method=GET",
		"req.status=404",
		`req.err="no such key"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("line %q missing %q", got, want)
		}
	}
	if got != stripANSI(got) {
		t.Fatalf("colour disabled but line has escapes: %q", got)
	}
}

func TestPrettyHandler_Color(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, true))
	log.Error("boom", "status", 503)

	got := buf.String()
	if !strings.Contains(got, ansiRed+"[ERROR]"+ansiReset) {
		t.Fatalf("expected red level tag in %q", got)
	}
	if !strings.Contains(stripANSI(got), "status=503") {
		t.Fatalf("expected status in %q", got)
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":         `""`,
		"plain":    "plain",
		"two word": `"two word"`,
		"a=b":      `"a=b"`,
	}
	for in, want := range cases {
		if got := quoteIfNeeded(in); got != want {
			t.Fatalf("quoteIfNeeded(%q)=%q want=%q", in, got, want)
		}
	}
}
