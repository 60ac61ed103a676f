package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/inference"
)

type ExtractCall struct {
	Question   string
	Content    string
	ModelIndex int
}

type RephraseCall struct {
	Question string
	Answer   string
	Prompt   string
}

// Client реализует Extractor и Rephraser.
type Client struct {
	Extraction      domain.Extraction
	ExtractFailure  *domain.Failure
	Generation      string
	RephraseFailure *domain.Failure
	Delay           time.Duration

	ExtractCalls  []ExtractCall
	RephraseCalls []RephraseCall

	mu sync.Mutex
}

func New() *Client {
	return &Client{
		Extraction: domain.Extraction{Answer: "Tony Stark", Score: 0.9, Start: 0, End: 10},
		Generation: "Tony Stark is Iron Man.",
	}
}

func (c *Client) WithExtraction(answer string) *Client {
	c.Extraction = domain.Extraction{Answer: answer, Score: 0.9, End: len(answer)}
	return c
}

func (c *Client) WithGeneration(text string) *Client {
	c.Generation = text
	return c
}

func (c *Client) WithExtractFailure(kind domain.FailureKind, err error) *Client {
	c.ExtractFailure = domain.NewFailure(kind, nil, err)
	return c
}

func (c *Client) WithRephraseFailure(kind domain.FailureKind, err error) *Client {
	c.RephraseFailure = domain.NewFailure(kind, nil, err)
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Extract(ctx context.Context, question, content string, modelIndex int) domain.Result[domain.Extraction] {
	c.mu.Lock()
	c.ExtractCalls = append(c.ExtractCalls, ExtractCall{Question: question, Content: content, ModelIndex: modelIndex})
	failure, value := c.ExtractFailure, c.Extraction
	c.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		return domain.Fail[domain.Extraction](domain.NewFailure(domain.FailureTransport, nil, err))
	}
	if failure != nil {
		return domain.Fail[domain.Extraction](failure)
	}
	return domain.Ok(value)
}

func (c *Client) Rephrase(ctx context.Context, question, answer string) domain.Result[domain.Generation] {
	c.mu.Lock()
	c.RephraseCalls = append(c.RephraseCalls, RephraseCall{
		Question: question,
		Answer:   answer,
		Prompt:   inference.FormalAnswerPrompt(question, answer),
	})
	failure, text := c.RephraseFailure, c.Generation
	c.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		return domain.Fail[domain.Generation](domain.NewFailure(domain.FailureTransport, nil, err))
	}
	if failure != nil {
		return domain.Fail[domain.Generation](failure)
	}
	return domain.Ok(domain.Generation{GeneratedText: text})
}

func (c *Client) LastExtract() (ExtractCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ExtractCalls) == 0 {
		return ExtractCall{}, false
	}
	return c.ExtractCalls[len(c.ExtractCalls)-1], true
}

func (c *Client) LastRephrase() (RephraseCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.RephraseCalls) == 0 {
		return RephraseCall{}, false
	}
	return c.RephraseCalls[len(c.RephraseCalls)-1], true
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ExtractCalls = nil
	c.RephraseCalls = nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.Delay):
		return nil
	}
}

var (
	_ inference.Extractor = (*Client)(nil)
	_ inference.Rephraser = (*Client)(nil)
)
