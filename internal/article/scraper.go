package article

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	maxPageSize      = 5 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; webqa/1.0)"
)

var (
	// ErrNoContent - страница получена, но текст статьи извлечь не удалось.
	// Парсер в этом случае подставляет заголовок и описание из выдачи.
	ErrNoContent = errors.New("no readable content")
	ErrBadStatus = errors.New("unexpected status code")
)

// Fetcher достаёт текст статьи по URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

type ScraperConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// Scraper - Fetcher на go-readability.
type Scraper struct {
	client    *http.Client
	userAgent string
}

func NewScraper(cfg ScraperConfig) *Scraper {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Scraper{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

func NewScraperWithClient(client *http.Client) *Scraper {
	return &Scraper{client: client, userAgent: defaultUserAgent}
}

// Fetch возвращает ErrNoContent (обёрнутую), когда сервер ответил, но статьи нет,
// и прочие ошибки для сетевых сбоев.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: parse url: %v", ErrNoContent, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrNoContent, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %w %d", ErrNoContent, ErrBadStatus, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageSize), parsedURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrNoContent, err)
	}

	content := strings.TrimSpace(article.TextContent)
	if content == "" {
		return "", ErrNoContent
	}

	return content, nil
}
