package article

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
)

type fakeFetcher struct {
	mu      sync.Mutex
	bodies  map[string]string
	errs    map[string]error
	delays  map[string]time.Duration
	calls   int32
	active  int32
	maxSeen int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)

	f.mu.Lock()
	if cur > f.maxSeen {
		f.maxSeen = cur
	}
	delay := f.delays[pageURL]
	body, err := f.bodies[pageURL], f.errs[pageURL]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return body, err
}

func results(n int) []domain.SearchResult {
	out := make([]domain.SearchResult, n)
	for i := range out {
		out[i] = domain.SearchResult{
			Title:       fmt.Sprintf("title %d", i),
			URL:         fmt.Sprintf("https://site%d.example/page", i),
			Description: fmt.Sprintf("description %d", i),
		}
	}
	return out
}

func TestParser_Parse_PreservesOrder(t *testing.T) {
	rs := results(4)
	f := &fakeFetcher{
		bodies: map[string]string{},
		delays: map[string]time.Duration{
			rs[0].URL: 40 * time.Millisecond,
			rs[1].URL: 10 * time.Millisecond,
			rs[2].URL: 30 * time.Millisecond,
		},
	}
	for i, r := range rs {
		f.bodies[r.URL] = fmt.Sprintf("body %d", i)
	}

	p := NewParser(f, Config{Workers: 4}, zap.NewNop(), nil)
	articles, err := p.Parse(context.Background(), ParseRequest{Results: rs, Fetch: true, Timeout: time.Second})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(articles) != 4 {
		t.Fatalf("Parse() got %d articles, want 4", len(articles))
	}
	for i, a := range articles {
		if a.Body != fmt.Sprintf("body %d", i) || a.Result != rs[i] {
			t.Errorf("articles[%d] = %+v, out of order", i, a)
		}
	}
}

func TestParser_Parse_Failures(t *testing.T) {
	rs := results(3)
	f := &fakeFetcher{
		bodies: map[string]string{rs[0].URL: "body 0", rs[2].URL: "body 2"},
		errs: map[string]error{
			rs[1].URL: errors.New("connection refused"),
			rs[2].URL: fmt.Errorf("%w: empty page", ErrNoContent),
		},
	}

	p := NewParser(f, Config{}, zap.NewNop(), nil)
	articles, err := p.Parse(context.Background(), ParseRequest{Results: rs, Fetch: true})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// транспортная ошибка выбрасывает пару, пустая страница заменяется описанием
	if len(articles) != 2 {
		t.Fatalf("Parse() got %d articles, want 2", len(articles))
	}
	if articles[0].Body != "body 0" || articles[0].Result != rs[0] {
		t.Errorf("articles[0] = %+v", articles[0])
	}
	if articles[1].Body != "title 2\ndescription 2" || articles[1].Result != rs[2] {
		t.Errorf("articles[1] = %+v, want fallback for result 2", articles[1])
	}
}

func TestParser_Parse_Timeout(t *testing.T) {
	rs := results(2)
	f := &fakeFetcher{
		bodies: map[string]string{rs[0].URL: "slow", rs[1].URL: "fast"},
		delays: map[string]time.Duration{rs[0].URL: time.Second},
	}

	p := NewParser(f, Config{}, zap.NewNop(), nil)
	articles, err := p.Parse(context.Background(), ParseRequest{Results: rs, Fetch: true, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(articles) != 1 || articles[0].Body != "fast" {
		t.Errorf("Parse() = %+v, want only the fast article", articles)
	}
}

func TestParser_Parse_NoFetch(t *testing.T) {
	rs := results(2)
	f := &fakeFetcher{}

	p := NewParser(f, Config{}, zap.NewNop(), nil)
	articles, err := p.Parse(context.Background(), ParseRequest{Results: rs, Fetch: false})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if f.calls != 0 {
		t.Errorf("fetcher called %d times with Fetch=false", f.calls)
	}
	if len(articles) != 2 || articles[1].Body != "title 1\ndescription 1" {
		t.Errorf("Parse() = %+v", articles)
	}
}

func TestParser_Parse_InvalidURLFallsBack(t *testing.T) {
	rs := []domain.SearchResult{{Title: "t", URL: "ftp://files.example", Description: "d"}}
	f := &fakeFetcher{}

	p := NewParser(f, Config{}, zap.NewNop(), nil)
	articles, _ := p.Parse(context.Background(), ParseRequest{Results: rs, Fetch: true})

	if f.calls != 0 {
		t.Error("fetcher called for non-http url")
	}
	if len(articles) != 1 || articles[0].Body != "t\nd" {
		t.Errorf("Parse() = %+v", articles)
	}
}

func TestParser_Parse_WorkerLimit(t *testing.T) {
	rs := results(8)
	f := &fakeFetcher{bodies: map[string]string{}, delays: map[string]time.Duration{}}
	for _, r := range rs {
		f.bodies[r.URL] = "body"
		f.delays[r.URL] = 20 * time.Millisecond
	}

	p := NewParser(f, Config{Workers: 2}, zap.NewNop(), nil)
	if _, err := p.Parse(context.Background(), ParseRequest{Results: rs, Fetch: true}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if f.maxSeen > 2 {
		t.Errorf("max concurrent fetches = %d, want <= 2", f.maxSeen)
	}
}

func TestParser_Parse_Cancelled(t *testing.T) {
	rs := results(2)
	f := &fakeFetcher{bodies: map[string]string{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewParser(f, Config{}, zap.NewNop(), nil)
	_, err := p.Parse(ctx, ParseRequest{Results: rs, Fetch: true})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Parse() error = %v, want context.Canceled", err)
	}
}
