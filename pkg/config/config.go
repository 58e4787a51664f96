// Package config loads the exporter settings.
//
// Sources, lowest to highest precedence: built-in defaults, an optional TOML
// file, a .env file, process environment variables. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by Load.
const (
	EnvToken        = "DISCORD_TOKEN"
	EnvExporterPath = "DISCORD_EXPORTER_PATH"
	EnvExportDir    = "DISCORD_EXPORT_DIR"
	EnvAPIURL       = "DISCORD_API_URL"
	EnvFormat       = "DISCORD_EXPORT_FORMAT"
	EnvMaxAttempts  = "DISCORD_MAX_ATTEMPTS"
	EnvRedisURL     = "REDIS_URL"
	EnvLogLevel     = "LOG_LEVEL"
	EnvMetricsFile  = "METRICS_FILE"
)

// DefaultBaseDir is where channel directories are created.
const DefaultBaseDir = "discord_exports"

// Config holds everything a run needs.
type Config struct {
	Token        string `toml:"token"`
	ExporterPath string `toml:"exporter_path"`
	BaseDir      string `toml:"base_dir"`
	APIBaseURL   string `toml:"api_base_url"`
	Format       string `toml:"format"`
	UserAgent    string `toml:"user_agent"`
	MaxAttempts  int    `toml:"max_attempts"`

	// RedisURL enables the channel/thread name cache, e.g.
	// redis://localhost:6379/0. Empty disables it.
	RedisURL string `toml:"redis_url"`

	LogLevel    string `toml:"log_level"`
	LogJSON     bool   `toml:"log_json"`
	MetricsFile string `toml:"metrics_file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseDir:     DefaultBaseDir,
		APIBaseURL:  "https://discord.com",
		Format:      "HtmlDark",
		MaxAttempts: 1,
		LogLevel:    "info",
	}
}

// Load builds a Config from defaults, the TOML file at path and the .env file
// at envFile. Either path may be empty; a missing .env file is ignored, a
// missing TOML file is not.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadTOML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = vals
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("env file load failed (%s): %w", envFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadTOML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvToken, &c.Token},
		{EnvExporterPath, &c.ExporterPath},
		{EnvExportDir, &c.BaseDir},
		{EnvAPIURL, &c.APIBaseURL},
		{EnvFormat, &c.Format},
		{EnvRedisURL, &c.RedisURL},
		{EnvLogLevel, &c.LogLevel},
		{EnvMetricsFile, &c.MetricsFile},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(EnvMaxAttempts); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxAttempts, v, err)
		}
		c.MaxAttempts = n
	}
	return nil
}

// Validate reports missing or out-of-range settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("discord token is required (set %s or token in the config file)", EnvToken)
	}
	if strings.TrimSpace(c.ExporterPath) == "" {
		return fmt.Errorf("exporter path is required (set %s or exporter_path in the config file)", EnvExporterPath)
	}
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base_dir must not be empty")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", c.MaxAttempts)
	}
	return nil
}
