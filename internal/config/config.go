// Package config handles mysteryagent configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/mysteryagent/config.yaml,
// /etc/mysteryagent/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mysteryagent", "config.yaml"))
	}

	paths = append(paths, "/etc/mysteryagent/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all mysteryagent configuration.
type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Game       GameConfig       `yaml:"game"`
	DataDir    string           `yaml:"data_dir"`
	LogLevel   string           `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// OpenRouterConfig defines the hosted model settings. The API key is
// normally supplied via the OPENROUTER_API_KEY environment variable
// rather than the config file.
type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// GameConfig defines game behavior settings.
type GameConfig struct {
	// MaxLog bounds the stored message log per session. Trimming keeps
	// system messages plus the most recent others.
	MaxLog int `yaml:"max_log"`
	// SessionTTLMinutes controls how long an idle session survives
	// before the expiry sweep removes it. Zero means the default.
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
	// AllowedOrigins lists CORS origins for the HTTP API.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads and parses the config file at path, applies environment
// overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with all defaults applied and environment
// overrides honored, for running without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// applyEnv overrides config values from the environment. Secrets live in
// the environment (or a .env file loaded by the caller), never in YAML
// checked into a repo.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.OpenRouter.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		c.OpenRouter.Model = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" {
		c.OpenRouter.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8000
	}
	if c.OpenRouter.BaseURL == "" {
		c.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.OpenRouter.Model == "" {
		c.OpenRouter.Model = "mistralai/mistral-7b-instruct:free"
	}
	if c.Game.MaxLog == 0 {
		c.Game.MaxLog = 100
	}
	if c.Game.SessionTTLMinutes == 0 {
		c.Game.SessionTTLMinutes = 60
	}
	if len(c.Game.AllowedOrigins) == 0 {
		c.Game.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port out of range: %d", c.Listen.Port)
	}
	if c.Game.MaxLog < 2 {
		return fmt.Errorf("game.max_log too small: %d", c.Game.MaxLog)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SessionTTL returns the idle-session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Game.SessionTTLMinutes) * time.Minute
}
