package tavily

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

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Backoff []time.Duration
}

type Client struct {
	apiKey  string
	baseURL string
	backoff []time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
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

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	SearchDepth       string `json:"search_depth,omitempty"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Query        string         `json:"query"`
	Results      []tavilyResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

func (c *Client) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	if c.apiKey == "" {
		return nil, search.ErrMissingAPIKey
	}
	if req.MaxResults == 0 {
		req.MaxResults = 5
	}

	// answer-бокс tavily не похож на knowledge panel, не запрашиваем
	body, err := json.Marshal(tavilyRequest{
		APIKey:      c.apiKey,
		Query:       req.Query,
		MaxResults:  req.MaxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := search.Do(ctx, c.client, c.backoff, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}

	var tavilyResp tavilyResponse
	if err := json.Unmarshal(respBody, &tavilyResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(tavilyResp.Results) == 0 {
		return nil, search.ErrEmptyResults
	}

	c.logger.Debug("tavily search done",
		zap.Int("results", len(tavilyResp.Results)),
		zap.Float64("response_time", tavilyResp.ResponseTime),
	)

	return toSearchResponse(req.Query, &tavilyResp), nil
}

func toSearchResponse(query string, resp *tavilyResponse) *search.Response {
	results := make([]domain.SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = domain.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Content,
		}
	}

	return &search.Response{
		Query:   query,
		Results: results,
	}
}
