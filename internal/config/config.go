package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the project-local config file looked up in the working directory.
const FileName = ".verifycache.toml"

// Config represents the verifycache configuration.
type Config struct {
	Cache    CacheConfig  `toml:"cache"`
	Linter   LinterConfig `toml:"linter"`
	Workers  int          `toml:"workers"`
	LogLevel string       `toml:"log_level"`
	Format   string       `toml:"format"`
}

// CacheConfig controls the verification cache.
type CacheConfig struct {
	Enabled    *bool  `toml:"enabled"`
	Dir        string `toml:"dir"`
	TTLSeconds int    `toml:"ttl_seconds"`
	MaxEntries int    `toml:"max_entries"`
}

// LinterConfig describes the external verifier.
type LinterConfig struct {
	Command  string   `toml:"command"`
	FastArgs []string `toml:"fast_args"`
	DeepArgs []string `toml:"deep_args"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	enabled := true
	return Config{
		Cache: CacheConfig{
			Enabled:    &enabled,
			Dir:        ".verifycache",
			TTLSeconds: 300,
			MaxEntries: 1000,
		},
		Linter: LinterConfig{
			Command:  "ruff",
			FastArgs: []string{"check", "--output-format", "json", "--select", "E,F"},
			DeepArgs: []string{"check", "--output-format", "json"},
		},
		Workers:  runtime.NumCPU(),
		LogLevel: "warn",
		Format:   "text",
	}
}

// CacheEnabled reports whether caching is on.
func (c Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// TTL returns the cache TTL as a duration.
func (c Config) TTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_seconds must not be negative, got %d", c.Cache.TTLSeconds))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries))
	}
	if c.Linter.Command == "" {
		errs = append(errs, errors.New("linter.command must be set"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	switch c.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown format %q", c.Format))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the platform-appropriate config directory for verifycache.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "verifycache"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "verifycache"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "verifycache"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "verifycache"), nil
	default:
		return filepath.Join(home, ".config", "verifycache"), nil
	}
}

// FindFile returns the config file to use: the project-local file if it
// exists, else the user config file. Returns "" if neither exists.
func FindFile() (string, error) {
	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", nil
}

// LoadFile parses a TOML config file.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// path selects the config file; if empty, FindFile is used.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()

	if path == "" {
		found, err := FindFile()
		if err != nil {
			return Config{}, err
		}
		path = found
	}
	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		mergeFile(&cfg, fileCfg)
	}

	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds != 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	if src.Cache.MaxEntries != 0 {
		dst.Cache.MaxEntries = src.Cache.MaxEntries
	}
	if src.Linter.Command != "" {
		dst.Linter.Command = src.Linter.Command
	}
	if src.Linter.FastArgs != nil {
		dst.Linter.FastArgs = src.Linter.FastArgs
	}
	if src.Linter.DeepArgs != nil {
		dst.Linter.DeepArgs = src.Linter.DeepArgs
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("VERIFYCACHE_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("VERIFYCACHE_TTL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VERIFYCACHE_TTL_SECONDS must be an integer: %w", err)
		}
		cfg.Cache.TTLSeconds = n
	}
	if v := os.Getenv("VERIFYCACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VERIFYCACHE_MAX_ENTRIES must be an integer: %w", err)
		}
		cfg.Cache.MaxEntries = n
	}
	if v := os.Getenv("VERIFYCACHE_NO_CACHE"); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("VERIFYCACHE_NO_CACHE must be a boolean: %w", err)
		}
		enabled := !disabled
		cfg.Cache.Enabled = &enabled
	}
	if v := os.Getenv("VERIFYCACHE_LINTER"); v != "" {
		cfg.Linter.Command = v
	}
	if v := os.Getenv("VERIFYCACHE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VERIFYCACHE_WORKERS must be an integer: %w", err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("VERIFYCACHE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := SetField(cfg, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "cacheDir":
		cfg.Cache.Dir = value
	case "ttlSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("ttlSeconds must be an integer: %w", err)
		}
		cfg.Cache.TTLSeconds = n
	case "maxEntries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxEntries must be an integer: %w", err)
		}
		cfg.Cache.MaxEntries = n
	case "noCache":
		disabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("noCache must be a boolean: %w", err)
		}
		enabled := !disabled
		cfg.Cache.Enabled = &enabled
	case "linter":
		cfg.Linter.Command = value
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("workers must be an integer: %w", err)
		}
		cfg.Workers = n
	case "logLevel":
		cfg.LogLevel = value
	case "format":
		cfg.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
