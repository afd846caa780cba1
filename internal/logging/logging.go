// Package logging assembles the process logger: console or JSON on stderr,
// an optional rotated file and an optional in-memory ring for GET /logs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"sdbridge/internal/common/fsutil"
	"sdbridge/internal/logring"
)

// Rotation defaults for the file sink.
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

// Options selects the sinks of a Logger.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Console receives human-readable output. Nil selects os.Stderr unless
	// NoConsole is set.
	Console   io.Writer
	NoConsole bool
	// JSON writes raw JSON events to Console instead of the console format.
	JSON bool

	// File enables a rotated log file at this path.
	File string
	// Truncate empties File before the first write.
	Truncate   bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Ring, when set, records every event as a plain text line.
	Ring *logring.Ring
}

// Logger bundles the configured zerolog.Logger with the sinks it owns.
type Logger struct {
	zerolog.Logger
	// File is the rotated sink, nil when Options.File was empty. Child process
	// output can be written to it directly.
	File *lumberjack.Logger
}

// Close releases the file sink.
func (l *Logger) Close() error {
	if l.File == nil {
		return nil
	}
	return l.File.Close()
}

// ParseLevel maps a level name to a zerolog level; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "err":
		return zerolog.ErrorLevel, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	var writers []io.Writer
	if !opts.NoConsole {
		out := opts.Console
		if out == nil {
			out = os.Stderr
		}
		if opts.JSON {
			writers = append(writers, out)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
		}
	}
	l := &Logger{}
	if opts.File != "" {
		f, err := FileWriter(opts.File, opts)
		if err != nil {
			return nil, err
		}
		l.File = f
		writers = append(writers, f)
	}
	if opts.Ring != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: logring.Tee(nil, opts.Ring), NoColor: true, TimeFormat: time.RFC3339})
	}
	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}
	l.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return l, nil
}

// FileWriter opens a rotated file sink at path, creating its directory.
// Zero rotation fields in opts fall back to the package defaults.
func FileWriter(path string, opts Options) (*lumberjack.Logger, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	dir, err := fsutil.EnsureDir(filepath.Dir(p))
	if err != nil {
		return nil, err
	}
	p = filepath.Join(dir, filepath.Base(p))
	if opts.Truncate {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			return nil, fmt.Errorf("truncate %s: %w", p, err)
		}
	}
	lj := &lumberjack.Logger{
		Filename:   p,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	if lj.MaxSize <= 0 {
		lj.MaxSize = DefaultMaxSizeMB
	}
	if lj.MaxBackups <= 0 {
		lj.MaxBackups = DefaultMaxBackups
	}
	if lj.MaxAge <= 0 {
		lj.MaxAge = DefaultMaxAgeDays
	}
	return lj, nil
}
