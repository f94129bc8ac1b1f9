package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/handiism/moviedata/internal/config"
	"github.com/handiism/moviedata/internal/history"
	"github.com/handiism/moviedata/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file")
	logFlag := flag.String("log", "", "Write logs to this file")
	flag.Parse()

	path := *configFlag
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}
	settings := config.DefaultSettings()
	if path != "" {
		var err error
		settings, err = config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// The terminal belongs to the UI, so logs only go to a file when asked.
	logger := slog.New(slog.DiscardHandler)
	if *logFlag != "" {
		f, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: settings.SlogLevel()}))
	}

	opts := []tui.Option{tui.WithLogger(logger), tui.WithFile(flag.Arg(0))}
	store, err := history.Open(settings.HistoryFile(), settings.MaxRecentFiles)
	if err != nil {
		logger.Warn("history unavailable", "err", err)
	} else {
		defer store.Close()
		opts = append(opts, tui.WithHistory(store))
	}

	if err := tui.Run(settings, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
