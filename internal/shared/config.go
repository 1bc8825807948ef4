package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Graph    GraphConfig    `toml:"graph"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig contains backend proxy settings.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
	Burst          int     `toml:"burst"`
}

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionConfig selects where session tokens are persisted.
type SessionConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [http.Server].
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GraphConfig controls recommendation requests and map rendering.
type GraphConfig struct {
	RecommendationLimit int     `toml:"recommendation_limit"`
	Market              string  `toml:"market"`
	LinkDistance        float64 `toml:"link_distance"`
	Width               int     `toml:"width"`
	Height              int     `toml:"height"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads a TOML configuration file and overlays it on [DefaultConfig].
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// LoadEnv loads variables from .env files into the process environment.
//
// Missing files are ignored and existing variables are never overridden.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from TUNEMAP_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TUNEMAP_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("TUNEMAP_SESSION_BACKEND"); v != "" {
		c.Session.Backend = v
	}
	if v := os.Getenv("TUNEMAP_SESSION_PATH"); v != "" {
		c.Session.Path = v
	}
	if v := os.Getenv("TUNEMAP_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("TUNEMAP_SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("TUNEMAP_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TUNEMAP_SERVER_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("TUNEMAP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
