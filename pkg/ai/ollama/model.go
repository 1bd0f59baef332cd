// Package ollama runs prompts against a model served by a local Ollama daemon.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/venkytv/event-creator/pkg/ai"
	"github.com/venkytv/event-creator/pkg/config"
)

const DefaultURL = "http://localhost:11434"

// Model is a single Ollama model
type Model struct {
	id          string
	name        string
	description string
	model       string
	options     map[string]any
	client      *api.Client
	logger      *slog.Logger
}

// New creates an Ollama model from its configuration
func New(cfg config.ModelConfig, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model %q: model name is required", cfg.ID)
	}

	rawURL := cfg.URL
	if rawURL == "" {
		rawURL = DefaultURL
	}
	base, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ollama model %q: invalid url: %w", cfg.ID, err)
	}

	description := cfg.Description
	if description == "" {
		description = fmt.Sprintf("Ollama model %s", cfg.Model)
	}

	return &Model{
		id:          cfg.ID,
		name:        cfg.Name,
		description: description,
		model:       cfg.Model,
		options:     generateOptions(cfg),
		client:      api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		logger:      logger,
	}, nil
}

func generateOptions(cfg config.ModelConfig) map[string]any {
	options := map[string]any{}
	if cfg.Temperature != nil {
		options["temperature"] = *cfg.Temperature
	}
	if cfg.TopK > 0 {
		options["top_k"] = cfg.TopK
	}
	if cfg.MaxOutputTokens > 0 {
		options["num_predict"] = cfg.MaxOutputTokens
	}
	return options
}

func (m *Model) ID() string          { return m.id }
func (m *Model) Name() string        { return m.name }
func (m *Model) Description() string { return m.description }

// Run sends a non-streaming generate request
func (m *Model) Run(ctx context.Context, prompt string) (*ai.Response, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   m.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: m.options,
	}

	m.logger.Debug("Sending prompt to Ollama",
		"model_id", m.id,
		"model", m.model,
		"prompt_length", len(prompt))

	var text strings.Builder
	var doneReason string
	err := m.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		if resp.Done {
			doneReason = resp.DoneReason
		}
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("ollama returned HTTP %d: %s", statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return nil, fmt.Errorf("generate request failed: %w", err)
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, ai.ErrEmptyResponse
	}

	return &ai.Response{
		Text:         text.String(),
		FinishReason: finishReason(doneReason),
	}, nil
}

// IsHealthy checks the daemon is reachable and has the model pulled
func (m *Model) IsHealthy(ctx context.Context) error {
	list, err := m.client.List(ctx)
	if err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
	}

	for _, installed := range list.Models {
		if matchesModel(installed.Name, m.model) || matchesModel(installed.Model, m.model) {
			return nil
		}
	}
	return fmt.Errorf("model %s is not installed", m.model)
}

// matchesModel treats "llama3.2" and "llama3.2:latest" as the same model
func matchesModel(installed, wanted string) bool {
	if installed == wanted {
		return true
	}
	if !strings.Contains(wanted, ":") {
		return installed == wanted+":latest"
	}
	return false
}

func finishReason(doneReason string) ai.FinishReason {
	switch doneReason {
	case "stop", "":
		return ai.FinishReasonStop
	case "length":
		return ai.FinishReasonLength
	default:
		return ai.FinishReasonError
	}
}
