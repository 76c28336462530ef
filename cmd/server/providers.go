package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/wellness-labs/internal/config"
	"github.com/ashureev/wellness-labs/internal/llm"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured text-generation providers and their availability",
	RunE: func(cmd *cobra.Command, _ []string) error {
		strict, _ := cmd.Flags().GetBool("strict")

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		providers, closeAll := buildProviders(ctx, cfg.LLM, logger)
		defer closeAll()

		out := cmd.OutOrStdout()
		available := 0
		for i, p := range providers {
			state := "unavailable"
			if p.Available(ctx) {
				state = "available"
				available++
			}
			fmt.Fprintf(out, "%d. %-12s %s\n", i+1, p.Name(), state)
		}
		if len(providers) == 0 {
			fmt.Fprintln(out, "No providers configured; questions come from the fallback table.")
		}

		if strict && available == 0 {
			return errors.New("no text-generation provider available")
		}
		return nil
	},
}

func init() {
	providersCmd.Flags().Bool("strict", false, "exit non-zero when no provider is available")
}

// buildProviders creates the providers named in cfg.Providers, in order.
// Providers without credentials are skipped and constructor failures are
// logged, so the gateway can always fall back.
func buildProviders(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) ([]llm.Provider, func()) {
	var (
		providers []llm.Provider
		closers   []func() error
	)

	for _, name := range cfg.Providers {
		var (
			p   llm.Provider
			err error
		)
		switch name {
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				continue
			}
			p, err = llm.NewOpenAIProvider(llm.OpenAIConfig{
				Name:             "openai",
				APIKey:           cfg.OpenAIAPIKey,
				BaseURL:          cfg.OpenAIBaseURL,
				Model:            cfg.Model,
				StructuredOutput: cfg.StructuredOutput,
			})
		case "openrouter":
			if cfg.OpenRouterAPIKey == "" {
				continue
			}
			p, err = llm.NewOpenAIProvider(llm.OpenAIConfig{
				Name:             "openrouter",
				APIKey:           cfg.OpenRouterAPIKey,
				BaseURL:          openRouterBaseURL,
				Model:            cfg.OpenRouterModel,
				StructuredOutput: cfg.StructuredOutput,
			})
		case "ollama":
			if cfg.OllamaBaseURL == "" {
				continue
			}
			// Ollama ignores the key but the client requires one.
			p, err = llm.NewOpenAIProvider(llm.OpenAIConfig{
				Name:    "ollama",
				APIKey:  "ollama",
				BaseURL: cfg.OllamaBaseURL,
				Model:   cfg.OllamaModel,
			})
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				continue
			}
			p, err = llm.NewGeminiProvider(ctx, llm.GeminiConfig{
				APIKey: cfg.GeminiAPIKey,
				Model:  cfg.GeminiModel,
			})
		case "grpc":
			if cfg.GRPCAddr == "" {
				continue
			}
			var gp *llm.GRPCProvider
			gp, err = llm.NewGRPCProvider(ctx, llm.GRPCConfig{Address: cfg.GRPCAddr, Logger: logger})
			if err == nil {
				closers = append(closers, gp.Close)
				p = gp
			}
		default:
			logger.Warn("Unknown text-generation provider", "provider", name)
			continue
		}

		if err != nil {
			logger.Warn("Text-generation provider disabled", "provider", name, "error", err)
			continue
		}
		logger.Info("Text-generation provider configured", "provider", name)
		providers = append(providers, p)
	}

	return providers, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Failed to close provider", "error", err)
			}
		}
	}
}
