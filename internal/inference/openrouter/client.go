package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/inference"
)

const systemPrompt = "You rewrite a short answer into one formal sentence that answers the question. Reply with the sentence only."

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client - альтернативный Rephraser через OpenRouter chat completions.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek/deepseek-chat"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

func (c *Client) Rephrase(ctx context.Context, question, answer string) domain.Result[domain.Generation] {
	if c.apiKey == "" {
		return inference.FailGeneration(domain.FailureInvalidInput, nil, inference.ErrMissingAPIKey)
	}

	body, err := json.Marshal(inference.RephraseChat(c.model, systemPrompt, question, answer))
	if err != nil {
		return inference.FailGeneration(domain.FailureInvalidInput, nil, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return inference.FailGeneration(domain.FailureTransport, nil, fmt.Errorf("create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/kitbuilder587/webqa")
	httpReq.Header.Set("X-Title", "WebQA")

	respBody, statusCode, err := inference.DoRequest(c.client, httpReq)
	if err != nil {
		return inference.FailGeneration(domain.FailureTransport, nil, err)
	}

	// OpenRouter отдаёт ошибки провайдера и с кодом 200, в поле error
	return inference.ChatGeneration(statusCode, respBody, c.logger, "openrouter")
}

var _ inference.Rephraser = (*Client)(nil)
