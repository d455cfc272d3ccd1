package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
)

// GeminiClient calls Google Gemini through the genai SDK
type GeminiClient struct {
	client      *genai.Client
	models      ModelConfig
	temperature float32
	logger      *logger.Logger
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(ctx context.Context, apiKey string, models ModelConfig, temperature float64, log *logger.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		models:      models,
		temperature: float32(temperature),
		logger:      log.WithModule("gemini"),
	}, nil
}

// Ask generates a single-turn completion
func (g *GeminiClient) Ask(ctx context.Context, prompt string, tier contracts.ModelTier) (string, error) {
	model := g.models.Model(tier)

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		SystemInstruction: genai.NewContentFromText(defaultSystemPrompt, genai.RoleUser),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %w: %s", contracts.ErrReasoningUnavailable,
				&httputil.StatusError{URL: model, StatusCode: apiErr.Code}, apiErr.Message)
		}
		return "", unavailable("generate content: %v", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", unavailable("empty response from %s", model)
	}

	g.logger.WithFields(map[string]interface{}{
		"model":        model,
		"prompt_len":   len(prompt),
		"response_len": len(text),
	}).Debug("Generated content")
	return text, nil
}
