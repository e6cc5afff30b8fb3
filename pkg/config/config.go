// Package config loads factengine's configuration: the database file
// location, the MCP transport, and the embedding/LLM capability
// endpoints, following the teacher's viper-backed layered-defaults
// pattern (SetDefault, then an optional YAML file, then Unmarshal).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/factengine/factengine/internal/ratelimit"
)

// Config is the complete application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit ratelimit.Config `mapstructure:"rate_limit"`
}

// DatabaseConfig holds the single SQLite file location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MCPConfig holds MCP server transport configuration.
type MCPConfig struct {
	Transport string `mapstructure:"transport"` // "stdio" or "sse"
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	CORS      bool   `mapstructure:"cors"`
}

// EmbeddingConfig holds the embedding capability's endpoint.
type EmbeddingConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig holds the extraction/classification LLM capability's
// endpoint.
type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ConfigDir returns the directory factengine stores its config and
// database in by default.
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".factengine")
}

// DefaultConfig returns configuration with factengine's default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(ConfigDir(), "factengine.db"),
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Host:      "localhost",
			Port:      8420,
			CORS:      true,
		},
		Embedding: EmbeddingConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		LLM: LLMConfig{
			BaseURL: "http://localhost:11434",
			Model:   "qwen2.5:3b",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		RateLimit: *ratelimit.DefaultConfig(),
	}
}

// Load loads configuration from a YAML file with fallback to defaults.
// Searches, in order: ./config.yaml, ~/.factengine/config.yaml,
// /etc/factengine/config.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath("/etc/factengine")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("mcp.transport", d.MCP.Transport)
	v.SetDefault("mcp.host", d.MCP.Host)
	v.SetDefault("mcp.port", d.MCP.Port)
	v.SetDefault("mcp.cors", d.MCP.CORS)

	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.global.requests_per_second", d.RateLimit.Global.RequestsPerSecond)
	v.SetDefault("rate_limit.global.burst_size", d.RateLimit.Global.BurstSize)
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.MCP.Transport != "stdio" && c.MCP.Transport != "sse" {
		return fmt.Errorf("mcp.transport must be 'stdio' or 'sse'")
	}
	if c.MCP.Transport == "sse" {
		if c.MCP.Port < 1 || c.MCP.Port > 65535 {
			return fmt.Errorf("mcp.port must be between 1 and 65535")
		}
		if c.MCP.Host == "" {
			return fmt.Errorf("mcp.host is required for the sse transport")
		}
	}

	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	return nil
}

// EnsureDatabaseDir creates the database file's parent directory.
func (c *Config) EnsureDatabaseDir() error {
	dir := filepath.Dir(c.Database.Path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
