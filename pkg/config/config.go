// Package config provides unified configuration for the konexion gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (KONEXION_ prefix, plus legacy names)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"log/slog"
	"time"
)

// Config holds all configuration for the konexion gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Groq          GroqConfig          `yaml:"groq"`
	Ollama        OllamaConfig        `yaml:"ollama"`
	Client        ClientConfig        `yaml:"client"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`             // default: "0.0.0.0"
	Port            int           `yaml:"port"`             // default: 8000
	CORSOrigins     []string      `yaml:"cors_origins"`     // default: ["*"]
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// GroqConfig holds Groq cloud provider settings. The provider stays
// disabled while the API key is empty.
type GroqConfig struct {
	APIKey       string        `yaml:"api_key"`
	APIKeyFile   string        `yaml:"api_key_file"` // _file variant for api_key
	BaseURL      string        `yaml:"base_url"`     // default: Groq OpenAI-compatible endpoint
	Timeout      time.Duration `yaml:"timeout"`      // default: 30s
	VisionModels []string      `yaml:"vision_models"`
}

// OllamaConfig holds local Ollama engine settings.
type OllamaConfig struct {
	URL       string        `yaml:"url"`        // default: http://localhost:11434
	Timeout   time.Duration `yaml:"timeout"`    // default: 30s
	MaxTokens int           `yaml:"max_tokens"` // default: 2048
}

// ClientConfig holds stream buffering and reconnection settings shared
// with Go clients of the gateway.
type ClientConfig struct {
	MinChunkSize         int           `yaml:"min_chunk_size"`         // default: 20
	FlushInterval        time.Duration `yaml:"flush_interval"`         // default: 50ms
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // default: 5
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`   // default: 1s
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"; default: "info"
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 30 * time.Second,
		},
		Groq: GroqConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Timeout: 30 * time.Second,
		},
		Ollama: OllamaConfig{
			URL:       "http://localhost:11434",
			Timeout:   30 * time.Second,
			MaxTokens: 2048,
		},
		Client: ClientConfig{
			MinChunkSize:         20,
			FlushInterval:        50 * time.Millisecond,
			MaxReconnectAttempts: 5,
			ReconnectBaseDelay:   time.Second,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
