package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pcbaoi/aoi-go/cmd"
	"github.com/pcbaoi/aoi-go/internal/conf"
	"github.com/pcbaoi/aoi-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level, &logging.FileConfig{
		Path:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSize,
		MaxBackups: settings.Log.MaxBackups,
		MaxAgeDays: settings.Log.MaxAge,
		Compress:   settings.Log.Compress,
	})
	defer func() { _ = logging.Close() }()

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
