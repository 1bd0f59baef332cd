// Package openai runs prompts against a local server speaking the OpenAI
// chat completions protocol (llama.cpp server, LM Studio, vLLM).
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/venkytv/event-creator/pkg/ai"
	"github.com/venkytv/event-creator/pkg/config"
)

// Model is a chat model behind an OpenAI-compatible endpoint
type Model struct {
	id          string
	name        string
	description string
	model       string
	temperature float32
	maxTokens   int
	client      *goopenai.Client
	logger      *slog.Logger
}

// New creates an OpenAI-compatible model from its configuration. The url is
// the server root; the client appends /v1.
func New(cfg config.ModelConfig, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("openai model %q: url is required", cfg.ID)
	}

	description := cfg.Description
	if description == "" {
		description = "OpenAI-compatible local model"
		if cfg.Model != "" {
			description = fmt.Sprintf("OpenAI-compatible model %s", cfg.Model)
		}
	}

	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.URL, "/") + "/v1"
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Model{
		id:          cfg.ID,
		name:        cfg.Name,
		description: description,
		model:       cfg.Model,
		temperature: requestTemperature(cfg.Temperature),
		maxTokens:   cfg.MaxOutputTokens,
		client:      goopenai.NewClientWithConfig(clientConfig),
		logger:      logger,
	}, nil
}

// requestTemperature maps a configured 0 to the smallest positive value, as
// the client omits a zero temperature and the server would apply its default.
func requestTemperature(t *float64) float32 {
	if t == nil {
		return float32(config.DefaultTemperature)
	}
	if *t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(*t)
}

func (m *Model) ID() string          { return m.id }
func (m *Model) Name() string        { return m.name }
func (m *Model) Description() string { return m.description }

// Run sends the prompt as a single user message
func (m *Model) Run(ctx context.Context, prompt string) (*ai.Response, error) {
	m.logger.Debug("Sending prompt to chat completions endpoint",
		"model_id", m.id,
		"prompt_length", len(prompt))

	resp, err := m.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: m.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	})
	if err != nil {
		return nil, wrapError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ai.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	return &ai.Response{
		Text:         choice.Message.Content,
		FinishReason: finishReason(choice.FinishReason),
	}, nil
}

// IsHealthy checks the server answers the model listing endpoint
func (m *Model) IsHealthy(ctx context.Context) error {
	if _, err := m.client.ListModels(ctx); err != nil {
		return fmt.Errorf("model listing failed: %w", wrapError(err))
	}
	return nil
}

func wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("server returned HTTP %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("server returned HTTP %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("request failed: %w", err)
}

func finishReason(reason goopenai.FinishReason) ai.FinishReason {
	switch reason {
	case goopenai.FinishReasonStop, "":
		return ai.FinishReasonStop
	case goopenai.FinishReasonLength:
		return ai.FinishReasonLength
	default:
		return ai.FinishReasonError
	}
}
