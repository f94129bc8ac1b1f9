package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/handiism/moviedata/internal/codec"
	ioutils "github.com/handiism/moviedata/internal/io"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultHistoryName    = "history.db"
	DefaultArchiveName    = "archive.sqlite"
)

// Keymap binds the terminal browser's actions to keys.
type Keymap struct {
	Quit    string `toml:"quit"`
	Up      string `toml:"up"`
	Down    string `toml:"down"`
	Add     string `toml:"add"`
	Delete  string `toml:"delete"`
	Save    string `toml:"save"`
	Open    string `toml:"open"`
	Export  string `toml:"export"`
	Confirm string `toml:"confirm"`
	Cancel  string `toml:"cancel"`
}

// Settings holds all configuration options.
type Settings struct {
	// Storage
	DataDir       string `toml:"data_dir"`
	DefaultFormat string `toml:"default_format"` // extension used when none is given
	HistoryPath   string `toml:"history_path"`   // relative paths resolve under DataDir
	ArchivePath   string `toml:"archive_path"`

	// Limits
	MaxRecentFiles           int `toml:"max_recent_files"`
	MaxConcurrentConversions int `toml:"max_concurrent_conversions"`

	// Logging
	LogLevel string `toml:"log_level"` // debug, info, warn, error

	Keys Keymap `toml:"keys"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		DataDir:       defaultDataDir(),
		DefaultFormat: ".mqb",
		HistoryPath:   DefaultHistoryName,
		ArchivePath:   DefaultArchiveName,

		MaxRecentFiles:           10,
		MaxConcurrentConversions: 4,

		LogLevel: "warn",

		Keys: Keymap{
			Quit:    "q",
			Up:      "k",
			Down:    "j",
			Add:     "a",
			Delete:  "d",
			Save:    "s",
			Open:    "o",
			Export:  "x",
			Confirm: "enter",
			Cancel:  "esc",
		},
	}
}

// DefaultPath returns the per-user configuration file location,
// e.g. ~/.config/moviedata/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "moviedata", DefaultConfigFileName), nil
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "moviedata")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "moviedata")
}

// Load reads settings from a TOML file. Keys missing from the file keep
// their default values; a missing file yields the defaults.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return settings, nil
}

// Save writes settings to a TOML file, creating its directory if needed.
func (s *Settings) Save(path string) error {
	if err := ioutils.EnsureParent(path); err != nil {
		return err
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return err
	}

	return ioutils.WriteFileAtomic(path, data)
}

// Validate reports every invalid option at once.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := codec.DefaultRegistry().Lookup("x" + s.normalizedFormat()); err != nil {
		errs = append(errs, fmt.Errorf("default_format: %w", err))
	}
	if s.MaxRecentFiles < 1 {
		errs = append(errs, fmt.Errorf("max_recent_files must be at least 1, got %d", s.MaxRecentFiles))
	}
	if s.MaxConcurrentConversions < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_conversions must be at least 1, got %d", s.MaxConcurrentConversions))
	}
	if _, err := parseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Format returns DefaultFormat with a leading dot, e.g. ".mqb".
func (s *Settings) Format() string {
	return s.normalizedFormat()
}

func (s *Settings) normalizedFormat() string {
	f := strings.ToLower(strings.TrimSpace(s.DefaultFormat))
	if !strings.HasPrefix(f, ".") {
		f = "." + f
	}
	return f
}

// SlogLevel converts LogLevel for use with log/slog. Unknown values map to
// slog.LevelWarn.
func (s *Settings) SlogLevel() slog.Level {
	level, err := parseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}

// HistoryFile returns the recent-files database path.
func (s *Settings) HistoryFile() string {
	return s.resolve(s.HistoryPath, DefaultHistoryName)
}

// ArchiveFile returns the SQLite archive path.
func (s *Settings) ArchiveFile() string {
	return s.resolve(s.ArchivePath, DefaultArchiveName)
}

func (s *Settings) resolve(path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.DataDir, path)
}
