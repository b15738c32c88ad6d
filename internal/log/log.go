// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"

	charmlog "charm.land/log/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var initOnce sync.Once

// Setup installs the default logger. With a logFile, JSON records go to a
// rotating file; otherwise a human readable handler writes to stderr. Only
// the first call has an effect.
func Setup(logFile string, debug bool) {
	initOnce.Do(func() {
		slog.SetDefault(slog.New(newHandler(logFile, debug, os.Stderr)))
	})
}

func newHandler(logFile string, debug bool, stderr io.Writer) slog.Handler {
	if logFile == "" {
		level := charmlog.InfoLevel
		if debug {
			level = charmlog.DebugLevel
		}
		return charmlog.NewWithOptions(stderr, charmlog.Options{
			Level:  level,
			Prefix: "nospawn",
		})
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	return slog.NewJSONHandler(rotator, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
}
