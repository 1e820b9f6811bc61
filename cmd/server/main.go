// Command server runs the konexion chat gateway.
//
// Configuration is layered: built-in defaults, an optional YAML config
// file (-config flag or KONEXION_CONFIG), then environment variable
// overrides. A .env file in the working directory is loaded first.
//
// Common environment variables:
//
//	GROQ_API_KEY          - Groq API key (provider disabled when empty)
//	OLLAMA_URL            - Ollama engine URL (default: http://localhost:11434)
//	KONEXION_PORT         - Listen port (default: 8000)
//	KONEXION_CORS_ORIGINS - Comma-separated allowed origins (default: *)
//	KONEXION_LOG_LEVEL    - debug, info, warn, or error (default: info)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/menonsoftware/Konexion/pkg/config"
	"github.com/menonsoftware/Konexion/pkg/gateway"
	"github.com/menonsoftware/Konexion/pkg/observability"
	"github.com/menonsoftware/Konexion/pkg/provider"
	"github.com/menonsoftware/Konexion/pkg/provider/groq"
	"github.com/menonsoftware/Konexion/pkg/provider/ollama"
	"github.com/menonsoftware/Konexion/pkg/registry"
	"github.com/menonsoftware/Konexion/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Load .env before the config layer reads the environment. A missing
	// file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Registration order fixes duplicate-id priority: Ollama is
	// registered after Groq, so a locally pulled model with a clashing
	// id wins.
	var adapters []provider.Adapter

	if cfg.Groq.APIKey != "" {
		groqAdapter := groq.New(groq.Config{
			BaseURL:      cfg.Groq.BaseURL,
			APIKey:       cfg.Groq.APIKey,
			Timeout:      cfg.Groq.Timeout,
			VisionModels: cfg.Groq.VisionModels,
		})
		defer groqAdapter.Close()
		adapters = append(adapters, groqAdapter)
	} else {
		logger.Info("groq provider disabled, no API key configured")
	}

	ollamaAdapter, err := ollama.New(ollama.Config{
		URL:       cfg.Ollama.URL,
		Timeout:   cfg.Ollama.Timeout,
		MaxTokens: cfg.Ollama.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("creating ollama adapter: %w", err)
	}
	defer ollamaAdapter.Close()
	adapters = append(adapters, ollamaAdapter)

	reg := registry.New(adapters, registry.WithLogger(logger))

	// Block startup on the first catalog load. Preload never fails: with
	// every provider down it publishes the built-in default catalog.
	preloadCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	result := reg.Preload(preloadCtx)
	cancel()
	logger.Info("model catalog preloaded",
		"total", result.Total,
		"failed_providers", len(result.Failures))

	chat := gateway.New(reg,
		gateway.WithLogger(logger),
		gateway.WithMetrics(observability.GatewayMetrics{}),
		gateway.WithDefaultMaxTokens(cfg.Ollama.MaxTokens),
		// The websocket upgrade must honor the same origins as the REST
		// CORS layer; the upgrader's same-origin default would turn away
		// the browser frontend.
		gateway.WithCheckOrigin(transport.OriginChecker(cfg.Server.CORSOrigins)),
	)

	srv := transport.NewServer(
		transport.NewHandlers(reg, logger),
		chat,
		transport.WithAddr(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		transport.WithCORSOrigins(cfg.Server.CORSOrigins),
		transport.WithMetrics(cfg.Observability.Metrics.Enabled, cfg.Observability.Metrics.Path),
		transport.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transport.WithLogger(logger),
	)

	return srv.ListenAndServe()
}
