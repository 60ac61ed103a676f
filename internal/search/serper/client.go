package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/search"
)

const defaultBaseURL = "https://google.serper.dev"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Backoff []time.Duration
}

// Client - Google выдача через serper.dev. Единственный провайдер,
// который отдаёт answer box.
type Client struct {
	apiKey  string
	baseURL string
	backoff []time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = search.DefaultBackoff
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		backoff: cfg.Backoff,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

type serperResponse struct {
	Organic   []organicResult `json:"organic"`
	AnswerBox *answerBox      `json:"answerBox"`
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type answerBox struct {
	Title              string   `json:"title"`
	Answer             string   `json:"answer"`
	Snippet            string   `json:"snippet"`
	SnippetHighlighted []string `json:"snippetHighlighted"`
}

func (c *Client) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	if c.apiKey == "" {
		return nil, search.ErrMissingAPIKey
	}

	body, err := json.Marshal(serperRequest{Q: req.Query, Num: req.MaxResults})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := search.Do(ctx, c.client, c.backoff, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-KEY", c.apiKey)
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}

	var serperResp serperResponse
	if err := json.Unmarshal(respBody, &serperResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	resp := toSearchResponse(req.Query, &serperResp)
	if len(resp.Results) == 0 && resp.DirectAnswer == nil {
		return nil, search.ErrEmptyResults
	}

	c.logger.Debug("serper search done",
		zap.Int("results", len(resp.Results)),
		zap.Bool("direct_answer", resp.DirectAnswer != nil),
	)

	return resp, nil
}

func toSearchResponse(query string, resp *serperResponse) *search.Response {
	results := make([]domain.SearchResult, len(resp.Organic))
	for i, r := range resp.Organic {
		results[i] = domain.SearchResult{
			Title:       r.Title,
			URL:         r.Link,
			Description: r.Snippet,
		}
	}

	return &search.Response{
		Query:        query,
		Results:      results,
		DirectAnswer: parseAnswerBox(resp.AnswerBox),
	}
}

// parseAnswerBox: answer, иначе первый подсвеченный фрагмент, иначе snippet.
func parseAnswerBox(box *answerBox) *domain.DirectAnswer {
	if box == nil {
		return nil
	}

	answer := box.Answer
	if answer == "" && len(box.SnippetHighlighted) > 0 {
		answer = box.SnippetHighlighted[0]
	}
	if answer == "" {
		answer = box.Snippet
	}
	if answer == "" {
		return nil
	}

	return &domain.DirectAnswer{Title: box.Title, Answer: answer}
}
