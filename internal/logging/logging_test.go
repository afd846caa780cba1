package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sdbridge/internal/logring"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{"": zerolog.InfoLevel, "DEBUG": zerolog.DebugLevel, "warning": zerolog.WarnLevel, "err": zerolog.ErrorLevel, " trace ": zerolog.TraceLevel}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want { t.Fatalf("%q -> %v, %v; want %v", in, got, err, want) }
	}
	if _, err := ParseLevel("loud"); err == nil { t.Fatalf("expected error") }
}

func TestNewJSONConsoleAndRing(t *testing.T) {
	var buf bytes.Buffer
	ring := logring.NewRing(10)
	l, err := New(Options{Level: "info", Console: &buf, JSON: true, Ring: ring})
	if err != nil { t.Fatalf("new: %v", err) }
	l.Debug().Msg("hidden")
	l.Info().Str("k", "v").Msg("hello")
	var ev map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil { t.Fatalf("console not json: %v (%q)", err, buf.String()) }
	if ev["message"] != "hello" || ev["k"] != "v" { t.Fatalf("event=%v", ev) }
	lines := ring.Last(10)
	if len(lines) != 1 || !strings.Contains(lines[0], "hello") || !strings.Contains(lines[0], "k=v") { t.Fatalf("ring=%q", lines) }
}

func TestNewFileSinkTruncates(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "logs", "backend.log")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { t.Fatalf("mkdir: %v", err) }
	if err := os.WriteFile(p, []byte("stale\n"), 0o644); err != nil { t.Fatalf("write: %v", err) }
	l, err := New(Options{NoConsole: true, File: p, Truncate: true})
	if err != nil { t.Fatalf("new: %v", err) }
	l.Info().Msg("fresh")
	if err := l.Close(); err != nil { t.Fatalf("close: %v", err) }
	b, err := os.ReadFile(p)
	if err != nil { t.Fatalf("read: %v", err) }
	if strings.Contains(string(b), "stale") || !strings.Contains(string(b), "fresh") { t.Fatalf("file=%q", b) }
	if l.File.MaxSize != DefaultMaxSizeMB || l.File.MaxBackups != DefaultMaxBackups || l.File.MaxAge != DefaultMaxAgeDays || !l.File.Compress {
		t.Fatalf("rotation=%+v", l.File)
	}
}

func TestNewNoSinks(t *testing.T) {
	l, err := New(Options{NoConsole: true})
	if err != nil { t.Fatalf("new: %v", err) }
	l.Info().Msg("dropped")
	if err := l.Close(); err != nil { t.Fatalf("close: %v", err) }
}

func TestNewBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "shout"}); err == nil { t.Fatalf("expected error") }
}
