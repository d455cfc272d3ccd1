package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
)

const defaultSystemPrompt = "You are a disciplined Korean equity analyst. Follow the requested output format exactly."

// OpenAIClient calls an OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	httpClient  *httputil.Client
	baseURL     string
	models      ModelConfig
	temperature float64
	logger      *logger.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a client. Retries belong to the Retrying
// decorator, so httpClient should have retry disabled.
func NewOpenAIClient(httpClient *httputil.Client, apiKey, baseURL string, models ModelConfig, temperature float64, log *logger.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		httpClient:  httpClient.WithHeader("Authorization", "Bearer "+apiKey),
		baseURL:     strings.TrimRight(baseURL, "/"),
		models:      models,
		temperature: temperature,
		logger:      log.WithModule("openai"),
	}
}

// Ask sends a single-turn chat completion
func (c *OpenAIClient) Ask(ctx context.Context, prompt string, tier contracts.ModelTier) (string, error) {
	req := chatRequest{
		Model: c.models.Model(tier),
		Messages: []chatMessage{
			{Role: "system", Content: defaultSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
	}

	resp, err := c.httpClient.PostJSON(ctx, c.baseURL+"/chat/completions", req)
	if err != nil {
		return "", unavailable("request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", unavailable("read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %w: %s", contracts.ErrReasoningUnavailable,
			&httputil.StatusError{URL: c.baseURL + "/chat/completions", StatusCode: resp.StatusCode},
			truncate(string(body), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", unavailable("decode response: %v", err)
	}
	if out.Error != nil {
		return "", unavailable("api error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", unavailable("no completion returned")
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	c.logger.WithFields(map[string]interface{}{
		"model":        req.Model,
		"prompt_len":   len(prompt),
		"response_len": len(text),
	}).Debug("Chat completion")
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
