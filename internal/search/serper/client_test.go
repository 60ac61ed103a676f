package serper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/search"
)

func newTestClient(url string) *Client {
	return New(Config{
		APIKey:  "test-key",
		BaseURL: url,
		Timeout: 5 * time.Second,
		Backoff: []time.Duration{time.Millisecond},
	}, zap.NewNop())
}

func TestClient_Search(t *testing.T) {
	var gotKey string
	var gotReq serperRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		json.NewDecoder(r.Body).Decode(&gotReq)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"organic": [
				{"title": "Iron Man - Wikipedia", "link": "https://en.wikipedia.org/wiki/Iron_Man", "snippet": "Iron Man is a superhero..."},
				{"title": "Tony Stark", "link": "https://marvel.com/tony-stark", "snippet": "Tony Stark is Iron Man."}
			],
			"answerBox": {"title": "Iron Man", "answer": "Tony Stark"}
		}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Search(context.Background(), search.Request{Query: "Who is Iron Man?", MaxResults: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("X-API-KEY = %q", gotKey)
	}
	if gotReq.Q != "Who is Iron Man?" {
		t.Errorf("q = %q", gotReq.Q)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	want := domain.SearchResult{Title: "Tony Stark", URL: "https://marvel.com/tony-stark", Description: "Tony Stark is Iron Man."}
	if resp.Results[1] != want {
		t.Errorf("Results[1] = %+v, want %+v", resp.Results[1], want)
	}

	if resp.DirectAnswer == nil {
		t.Fatal("DirectAnswer is nil")
	}
	if resp.DirectAnswer.Answer != "Tony Stark" || resp.DirectAnswer.Title != "Iron Man" {
		t.Errorf("DirectAnswer = %+v", resp.DirectAnswer)
	}
}

func TestClient_Search_MissingAPIKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL}, zap.NewNop())

	_, err := client.Search(context.Background(), search.Request{Query: "q"})
	if !errors.Is(err, search.ErrMissingAPIKey) {
		t.Errorf("Search() error = %v, want ErrMissingAPIKey", err)
	}
	if called {
		t.Error("request sent without API key")
	}
}

func TestClient_Search_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Unauthorized."}`, search.ErrUnauthorized},
		{"rate limit", http.StatusTooManyRequests, `{}`, search.ErrRateLimit},
		{"empty", http.StatusOK, `{"organic": []}`, search.ErrEmptyResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Search(context.Background(), search.Request{Query: "q"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseAnswerBox(t *testing.T) {
	tests := []struct {
		name string
		box  *answerBox
		want *domain.DirectAnswer
	}{
		{
			name: "no answer box",
			box:  nil,
			want: nil,
		},
		{
			name: "answer wins",
			box:  &answerBox{Title: "t", Answer: "a", Snippet: "s", SnippetHighlighted: []string{"h"}},
			want: &domain.DirectAnswer{Title: "t", Answer: "a"},
		},
		{
			name: "highlighted snippet",
			box:  &answerBox{Title: "t", Snippet: "long snippet", SnippetHighlighted: []string{"h1", "h2"}},
			want: &domain.DirectAnswer{Title: "t", Answer: "h1"},
		},
		{
			name: "highlighted without snippet",
			box:  &answerBox{Title: "Iron Man", SnippetHighlighted: []string{"Tony Stark"}},
			want: &domain.DirectAnswer{Title: "Iron Man", Answer: "Tony Stark"},
		},
		{
			name: "plain snippet",
			box:  &answerBox{Title: "t", Snippet: "long snippet"},
			want: &domain.DirectAnswer{Title: "t", Answer: "long snippet"},
		},
		{
			name: "nothing usable",
			box:  &answerBox{Title: "t"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAnswerBox(tt.box)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parseAnswerBox() = %+v, want %+v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("parseAnswerBox() = %+v, want %+v", *got, *tt.want)
			}
		})
	}
}
