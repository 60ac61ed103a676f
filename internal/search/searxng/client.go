package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/search"
)

var ErrMissingURL = errors.New("searxng URL is not configured")

type Config struct {
	URL     string
	Timeout time.Duration
	Backoff []time.Duration
}

// Client - self-hosted SearXNG, JSON API (в settings.yml нужен formats: [html, json]).
type Client struct {
	baseURL string
	backoff []time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = search.DefaultBackoff
	}

	return &Client{
		baseURL: cfg.URL,
		backoff: cfg.Backoff,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type searxngResponse struct {
	Query   string          `json:"query"`
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
}

func (c *Client) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	if c.baseURL == "" {
		return nil, ErrMissingURL
	}

	params := url.Values{}
	params.Add("q", req.Query)
	params.Add("format", "json")
	fullURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	respBody, err := search.Do(ctx, c.client, c.backoff, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("User-Agent", "webqa/1.0")
		return httpReq, nil
	})
	if err != nil {
		// 403 у searxng почти всегда означает выключенный json формат
		if errors.Is(err, search.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: json format may be disabled in settings.yml", err)
		}
		return nil, err
	}

	var searxResp searxngResponse
	if err := json.Unmarshal(respBody, &searxResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(searxResp.Results) == 0 {
		return nil, search.ErrEmptyResults
	}

	// агрегатор смешивает движки, ранжируем по score
	sort.SliceStable(searxResp.Results, func(i, j int) bool {
		return searxResp.Results[i].Score > searxResp.Results[j].Score
	})

	c.logger.Debug("searxng search done", zap.Int("results", len(searxResp.Results)))

	resp := toSearchResponse(req.Query, &searxResp)
	if req.MaxResults > 0 {
		resp.Truncate(req.MaxResults)
	}
	return resp, nil
}

func toSearchResponse(query string, resp *searxngResponse) *search.Response {
	results := make([]domain.SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = domain.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Content,
		}
	}
	return &search.Response{Query: query, Results: results}
}
