package inference

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/metrics"
)

const DefaultBaseURL = "https://api-inference.huggingface.co/models"

type Config struct {
	InvokerConfig
	BaseURL       string
	QAModels      []string
	RephraseModel string
}

// Client - Hugging Face Inference API: extractive QA модели по индексу
// и модель перефразирования.
type Client struct {
	inv           *Invoker
	baseURL       string
	qaModels      []string
	rephraseModel string
	logger        *zap.Logger
}

func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RephraseModel == "" {
		cfg.RephraseModel = "google/flan-t5-xxl"
	}

	return &Client{
		inv:           NewInvoker(cfg.InvokerConfig, logger, m),
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		qaModels:      append([]string(nil), cfg.QAModels...),
		rephraseModel: cfg.RephraseModel,
		logger:        logger,
	}
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaPayload struct {
	Inputs qaInputs `json:"inputs"`
}

type textPayload struct {
	Inputs string `json:"inputs"`
}

func (c *Client) Models() []string {
	return append([]string(nil), c.qaModels...)
}

func (c *Client) Extract(ctx context.Context, question, content string, modelIndex int) domain.Result[domain.Extraction] {
	if modelIndex < 0 || modelIndex >= len(c.qaModels) {
		return domain.Fail[domain.Extraction](domain.NewFailure(domain.FailureInvalidInput, nil,
			fmt.Errorf("%w: %d, have %d models", ErrInvalidModelIndex, modelIndex, len(c.qaModels))))
	}

	c.logger.Debug("extracting answer",
		zap.String("model", c.qaModels[modelIndex]),
		zap.Int("context_len", len(content)),
	)

	payload := qaPayload{Inputs: qaInputs{Question: question, Context: content}}
	return Invoke[domain.Extraction](ctx, c.inv, c.endpoint(c.qaModels[modelIndex]), payload, "answer")
}

func (c *Client) Rephrase(ctx context.Context, question, answer string) domain.Result[domain.Generation] {
	payload := textPayload{Inputs: FormalAnswerPrompt(question, answer)}
	return Invoke[domain.Generation](ctx, c.inv, c.endpoint(c.rephraseModel), payload, "generated_text")
}

func (c *Client) endpoint(model string) string {
	return c.baseURL + "/" + model
}

var (
	_ Extractor = (*Client)(nil)
	_ Rephraser = (*Client)(nil)
)
