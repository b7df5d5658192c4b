// Package config assembles the server configuration from environment
// variables, optionally overlaid by a YAML file. Environment variables win
// over the file; both win over the built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort           = "4000"
	DefaultModel          = "gpt-4o"
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultTimeoutSeconds = 120
	DefaultMaxSessions    = 256
	DefaultQuarter        = "Q1 2026"
)

// Config carries everything the server binary needs to start.
type Config struct {
	Port           string        `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	LogLevel       string        `yaml:"log_level"`
	CurrentQuarter string        `yaml:"current_quarter"`
	MaxSessions    int           `yaml:"max_sessions"`
	LLM            LLMConfig     `yaml:"llm"`
	Metrics        MetricsConfig `yaml:"metrics"`
}

// LLMConfig carries completion provider settings.
type LLMConfig struct {
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// Scripted switches the provider to the built-in scripted client so the
	// server can run without an API key.
	Scripted bool `yaml:"scripted"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load builds the configuration: defaults, then the YAML file named by
// OKR_CONFIG_FILE (if set), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("OKR_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:           DefaultPort,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		LogLevel:       "info",
		CurrentQuarter: DefaultQuarter,
		MaxSessions:    DefaultMaxSessions,
		LLM: LLMConfig{
			Model:   DefaultModel,
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeoutSeconds * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("OKR_LOG_LEVEL", c.LogLevel)
	c.CurrentQuarter = getEnv("OKR_CURRENT_QUARTER", c.CurrentQuarter)
	if origins := os.Getenv("OKR_ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitAndTrim(origins)
	}
	if n, err := strconv.Atoi(os.Getenv("OKR_MAX_SESSIONS")); err == nil && n > 0 {
		c.MaxSessions = n
	}

	c.LLM.Model = getEnv("OKR_LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OKR_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OKR_BASE_URL", c.LLM.BaseURL)
	if secs, err := strconv.Atoi(os.Getenv("OKR_LLM_TIMEOUT_SECONDS")); err == nil && secs > 0 {
		c.LLM.Timeout = time.Duration(secs) * time.Second
	}
	if scripted := os.Getenv("OKR_LLM_SCRIPTED"); scripted != "" {
		c.LLM.Scripted = scripted == "1" || strings.EqualFold(scripted, "true")
	}

	if enabled := os.Getenv("OKR_METRICS_ENABLED"); enabled != "" {
		c.Metrics.Enabled = enabled == "1" || strings.EqualFold(enabled, "true")
	}
	c.Metrics.Path = getEnv("OKR_METRICS_PATH", c.Metrics.Path)
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", c.Port)
	}
	if !c.LLM.Scripted && c.LLM.APIKey == "" {
		return fmt.Errorf("OKR_API_KEY is required unless OKR_LLM_SCRIPTED is set")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model must not be empty")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive, got %d", c.MaxSessions)
	}
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
