package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/search"
)

type Client struct {
	Results      []domain.SearchResult
	DirectAnswer *domain.DirectAnswer
	Error        error
	Delay        time.Duration

	CallCount   int
	LastRequest search.Request
	AllRequests []search.Request

	mu sync.Mutex
}

func New() *Client {
	return &Client{}
}

func (c *Client) WithResults(results []domain.SearchResult) *Client {
	c.Results = results
	return c
}

func (c *Client) WithDirectAnswer(title, answer string) *Client {
	c.DirectAnswer = &domain.DirectAnswer{Title: title, Answer: answer}
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	err := c.Error
	results := append([]domain.SearchResult(nil), c.Results...)
	direct := c.DirectAnswer
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	if len(results) == 0 && direct == nil {
		return nil, search.ErrEmptyResults
	}

	return &search.Response{
		Query:        req.Query,
		Results:      results,
		DirectAnswer: direct,
	}, nil
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastRequest = search.Request{}
	c.AllRequests = nil
}
