package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all client configuration. Values come from DefaultConfig,
// then an optional YAML file, then TRAITQUEST_* environment variables.
type Config struct {
	APIBaseURL     string        `yaml:"api_url" env:"TRAITQUEST_API_URL"`
	WSBaseURL      string        `yaml:"ws_url" env:"TRAITQUEST_WS_URL"`
	DBPath         string        `yaml:"db_path" env:"TRAITQUEST_DB"`
	HTTPTimeout    time.Duration `yaml:"http_timeout" env:"TRAITQUEST_HTTP_TIMEOUT"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"TRAITQUEST_CONNECT_TIMEOUT"`
	SubmitTimeout  time.Duration `yaml:"submit_timeout" env:"TRAITQUEST_SUBMIT_TIMEOUT"`
	LogLevel       string        `yaml:"log_level" env:"TRAITQUEST_LOG_LEVEL"`
	LogFile        string        `yaml:"log_file" env:"TRAITQUEST_LOG_FILE"`

	// TokenInQuery keeps the bearer token in the WebSocket URL, which the
	// quest service requires. The token is also sent as a header.
	TokenInQuery bool `yaml:"token_in_query" env:"TRAITQUEST_WS_TOKEN_IN_QUERY"`
}

// DefaultConfig returns a Config pointing at a local backend with state
// under ~/.traitquest.
func DefaultConfig() Config {
	home := homeDir()
	return Config{
		APIBaseURL:     "http://localhost:8000/v1",
		WSBaseURL:      "ws://localhost:8000/v1/quests/ws",
		DBPath:         filepath.Join(home, ".traitquest", "traitquest.db"),
		HTTPTimeout:    15 * time.Second,
		ConnectTimeout: 10 * time.Second,
		SubmitTimeout:  90 * time.Second,
		LogLevel:       "info",
		LogFile:        filepath.Join(home, ".traitquest", "traitquest.log"),
		TokenInQuery:   true,
	}
}

// DefaultPath is where Load looks for a config file when none is given.
func DefaultPath() string {
	if v := os.Getenv("TRAITQUEST_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(homeDir(), ".traitquest", "config.yaml")
}

// Load builds the effective configuration. A missing file at path is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the client cannot run with.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("config: api_url is required")
	}
	if c.WSBaseURL == "" {
		return errors.New("config: ws_url is required")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("config: connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("config: submit_timeout must be positive, got %s", c.SubmitTimeout)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
