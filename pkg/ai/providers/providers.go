package providers

import (
	"context"
	"log/slog"

	"github.com/venkytv/event-creator/pkg/ai"
	"github.com/venkytv/event-creator/pkg/ai/ollama"
	"github.com/venkytv/event-creator/pkg/ai/openai"
	"github.com/venkytv/event-creator/pkg/ai/static"
	"github.com/venkytv/event-creator/pkg/config"
)

// InitializeBuiltinModels registers all built-in model backends with the factory
func InitializeBuiltinModels(factory *ai.DefaultModelFactory) {
	// Register Ollama backend
	factory.RegisterModel("ollama", func(cfg config.ModelConfig, logger *slog.Logger) (ai.Model, error) {
		return ollama.New(cfg, logger)
	})

	// Register OpenAI-compatible backend (llama.cpp, LM Studio, vLLM)
	factory.RegisterModel("openai", func(cfg config.ModelConfig, logger *slog.Logger) (ai.Model, error) {
		return openai.New(cfg, logger)
	})

	// Register canned-response backend
	factory.RegisterModel("static", func(cfg config.ModelConfig, logger *slog.Logger) (ai.Model, error) {
		return static.New(cfg, logger), nil
	})
}

// BuildRegistry creates every configured model and registers those that are usable.
// Models that fail to build or report themselves unhealthy are logged and left out.
func BuildRegistry(ctx context.Context, factory *ai.DefaultModelFactory, configs []config.ModelConfig, logger *slog.Logger) *ai.Registry {
	if logger == nil {
		logger = slog.Default()
	}

	registry := ai.NewRegistry(logger)
	for _, cfg := range configs {
		model, err := factory.CreateModel(cfg, logger)
		if err != nil {
			logger.Error("Failed to create model",
				"model_id", cfg.ID,
				"model_type", cfg.Type,
				"error", err)
			continue
		}

		if err := registry.Register(ctx, model); err != nil {
			logger.Warn("Model not registered",
				"model_id", cfg.ID,
				"error", err)
			continue
		}

		logger.Info("Model available",
			"model_id", cfg.ID,
			"model_type", cfg.Type)
	}

	return registry
}
