package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be a valid port.
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	// ollama.url is required; the local provider is always registered.
	if c.Ollama.URL == "" {
		errs = append(errs, fmt.Errorf("ollama.url is required"))
	}
	if c.Ollama.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("ollama.max_tokens must be > 0, got %d", c.Ollama.MaxTokens))
	}
	if c.Ollama.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("ollama.timeout must be > 0, got %s", c.Ollama.Timeout))
	}

	// groq.base_url is required only when the provider is enabled.
	if c.Groq.APIKey != "" && c.Groq.BaseURL == "" {
		errs = append(errs, fmt.Errorf("groq.base_url is required when groq.api_key is set"))
	}
	if c.Groq.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("groq.timeout must be > 0, got %s", c.Groq.Timeout))
	}

	// client thresholds must be positive; a zero threshold would flush
	// per delta and defeat the buffering.
	if c.Client.MinChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("client.min_chunk_size must be > 0, got %d", c.Client.MinChunkSize))
	}
	if c.Client.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("client.flush_interval must be > 0, got %s", c.Client.FlushInterval))
	}
	if c.Client.MaxReconnectAttempts < 0 {
		errs = append(errs, fmt.Errorf("client.max_reconnect_attempts must be >= 0, got %d", c.Client.MaxReconnectAttempts))
	}
	if c.Client.ReconnectBaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("client.reconnect_base_delay must be > 0, got %s", c.Client.ReconnectBaseDelay))
	}

	// logging.level must be a known value.
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of \"debug\", \"info\", \"warn\", \"error\", got %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}
