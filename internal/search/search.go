package search

import (
	"context"
	"errors"

	"github.com/kitbuilder587/webqa/internal/domain"
)

var (
	ErrMissingAPIKey  = errors.New("search API key is not configured")
	ErrUnauthorized   = errors.New("invalid API key")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrSearchFailed   = errors.New("search request failed")
	ErrEmptyResults   = errors.New("no results found")
)

// Provider - поисковый бэкенд. Результаты возвращаются в порядке ранжирования.
type Provider interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

type Request struct {
	Query      string
	MaxResults int
}

type Response struct {
	Query   string
	Results []domain.SearchResult
	// DirectAnswer заполняют только провайдеры с answer box (serper)
	DirectAnswer *domain.DirectAnswer
}

// Truncate обрезает выдачу до n результатов.
func (r *Response) Truncate(n int) {
	if n >= 0 && len(r.Results) > n {
		r.Results = r.Results[:n]
	}
}
