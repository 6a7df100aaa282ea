// Package logging configures the application loggers. Structured JSON goes
// to the log file (rotated by lumberjack) and human-readable text to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu            sync.Mutex
	defaultLogger *slog.Logger
	fileWriter    io.WriteCloser
)

// FileConfig describes the rotated log file. A zero Path disables file output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Init sets up the default loggers. Safe to call more than once; the last
// call wins.
func Init(level slog.Level, fileCfg *FileConfig) {
	mu.Lock()
	defer mu.Unlock()

	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}

	var handler slog.Handler
	if fileCfg != nil && fileCfg.Path != "" {
		lj := &lumberjack.Logger{
			Filename:   fileCfg.Path,
			MaxSize:    fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAge:     fileCfg.MaxAgeDays,
			Compress:   fileCfg.Compress,
		}
		fileWriter = lj
		handler = slog.NewJSONHandler(lj, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// ForService returns a child logger tagged with the service name. Falls back
// to the process default logger when Init has not been called.
func ForService(service string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		return slog.Default().With("service", service)
	}
	return defaultLogger.With("service", service)
}

// Close flushes and closes the rotated log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}
