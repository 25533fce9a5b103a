// Package config loads host settings for the readtrack CLI and HTTP server.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvDBPath   = "READTRACK_DB_PATH"
	EnvLogLevel = "READTRACK_LOG_LEVEL"
	EnvListen   = "READTRACK_LISTEN"
	EnvKeep     = "READTRACK_KEEP_SNAPSHOTS"
)

// Config holds host settings. The progress store itself takes no settings.
type Config struct {
	DBPath        string `yaml:"db_path"`
	LogLevel      string `yaml:"log_level"`
	Listen        string `yaml:"listen"`
	KeepSnapshots int    `yaml:"keep_snapshots"`
}

// DefaultConfig returns the built-in defaults. Environment overrides are
// applied by Load.
func DefaultConfig() *Config {
	return &Config{
		DBPath:        defaultDBPath(),
		LogLevel:      "info",
		Listen:        "127.0.0.1:8787",
		KeepSnapshots: 20,
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "readtrack.db"
	}
	return filepath.Join(home, ".readtrack", "data.db")
}

// Load reads the YAML file at path over the defaults. An empty path, or a
// path that does not exist, skips the file. Environment overrides are
// applied after the file, and the result is always validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(strings.NewReader(expandEnvVars(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvKeep); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", EnvKeep, v)
		}
		c.KeepSnapshots = n
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(name)
	})
}

// Validate checks that settings are usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel)
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("listen is not a host:port address: %w", err)
	}
	if c.KeepSnapshots < 1 {
		return fmt.Errorf("keep_snapshots must be at least 1")
	}
	return nil
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// SetupLogger builds a text logger writing to w. Unknown levels fall back
// to info.
func SetupLogger(w io.Writer, level string) *slog.Logger {
	lvl, _ := parseLevel(level)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
