package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process wide log output. Zero values keep the
// environment driven defaults.
type Options struct {
	Level   string
	Console bool
	// File, when set, receives the logs instead of stdout and is rotated.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu     sync.RWMutex
	output io.Writer
	level  *zerolog.Level
)

// Setup applies opts to every logger created afterwards and returns a
// closer for the log file.
func Setup(opts Options) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		out, closer = lj, lj
	}
	if opts.Console || strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.File != ""}
	}

	mu.Lock()
	defer mu.Unlock()
	output = out
	level = nil
	if opts.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return closer, err
		}
		level = &lvl
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func configured() (io.Writer, zerolog.Level, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if output == nil {
		return nil, 0, false
	}
	lvl := levelFromEnv()
	if level != nil {
		lvl = *level
	}
	return output, lvl, true
}
