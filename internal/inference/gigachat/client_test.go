package gigachat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/inference"
)

func newAuthServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Header.Get("RqUID") == "" {
			t.Error("RqUID header is missing")
		}
		json.NewEncoder(w).Encode(authResponse{
			AccessToken: "test-token",
			ExpiresAt:   time.Now().Add(30 * time.Minute).UnixMilli(),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Rephrase(t *testing.T) {
	var authCalls int32
	authServer := newAuthServer(t, &authCalls)

	tests := []struct {
		name       string
		response   interface{}
		statusCode int
		wantKind   domain.FailureKind
		wantErr    error
	}{
		{
			name: "successful completion",
			response: inference.ChatResponse{
				Choices: []inference.ChatChoice{
					{Message: inference.ChatMessage{Role: "assistant", Content: " Tony Stark is Iron Man. "}},
				},
			},
			statusCode: http.StatusOK,
		},
		{
			name:       "rate limit",
			response:   map[string]string{"error": "rate limit"},
			statusCode: http.StatusTooManyRequests,
			wantKind:   domain.FailureModelError,
			wantErr:    inference.ErrRateLimit,
		},
		{
			name: "empty response",
			response: inference.ChatResponse{
				Choices: []inference.ChatChoice{},
			},
			statusCode: http.StatusOK,
			wantKind:   domain.FailureMalformed,
			wantErr:    inference.ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer test-token" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				w.WriteHeader(tt.statusCode)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer apiServer.Close()

			client := New(Config{
				ClientID:     "test-id",
				ClientSecret: "test-secret",
				AuthURL:      authServer.URL,
				BaseURL:      apiServer.URL,
				Timeout:      5 * time.Second,
			}, zap.NewNop())

			result := client.Rephrase(context.Background(), "Who is Iron Man?", "Tony Stark")

			if tt.wantErr != nil {
				if result.Success {
					t.Fatal("Rephrase() succeeded, want failure")
				}
				if result.Failure.Kind != tt.wantKind {
					t.Errorf("Kind = %s, want %s", result.Failure.Kind, tt.wantKind)
				}
				if !errors.Is(result.Failure, tt.wantErr) {
					t.Errorf("Failure = %v, want %v", result.Failure, tt.wantErr)
				}
				return
			}

			if !result.Success {
				t.Fatalf("Rephrase() failure = %v", result.Failure)
			}
			if result.Value.GeneratedText != "Tony Stark is Iron Man." {
				t.Errorf("GeneratedText = %q", result.Value.GeneratedText)
			}
		})
	}
}

func TestClient_PromptContainsQuestionAndAnswer(t *testing.T) {
	var authCalls int32
	authServer := newAuthServer(t, &authCalls)

	var got inference.ChatRequest
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(inference.ChatResponse{
			Choices: []inference.ChatChoice{{Message: inference.ChatMessage{Content: "ok"}}},
		})
	}))
	defer apiServer.Close()

	client := New(Config{AuthKey: "key", AuthURL: authServer.URL, BaseURL: apiServer.URL}, zap.NewNop())
	client.Rephrase(context.Background(), "Who is Iron Man?", "Tony Stark")

	if got.Model != "GigaChat" {
		t.Errorf("Model = %q, want GigaChat", got.Model)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[1].Content != inference.FormalAnswerPrompt("Who is Iron Man?", "Tony Stark") {
		t.Errorf("prompt = %q", got.Messages[1].Content)
	}
}

func TestClient_TokenCaching(t *testing.T) {
	var authCalls int32
	authServer := newAuthServer(t, &authCalls)

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inference.ChatResponse{
			Choices: []inference.ChatChoice{
				{Message: inference.ChatMessage{Role: "assistant", Content: "response"}},
			},
		})
	}))
	defer apiServer.Close()

	client := New(Config{
		ClientID:     "test-id",
		ClientSecret: "test-secret",
		AuthURL:      authServer.URL,
		BaseURL:      apiServer.URL,
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		if r := client.Rephrase(context.Background(), "q", "a"); !r.Success {
			t.Fatalf("call %d failure = %v", i, r.Failure)
		}
	}

	if atomic.LoadInt32(&authCalls) != 1 {
		t.Errorf("auth calls = %d, want 1", authCalls)
	}
}

func TestClient_RefreshOnUnauthorized(t *testing.T) {
	var authCalls, apiCalls int32
	authServer := newAuthServer(t, &authCalls)

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&apiCalls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(inference.ChatResponse{
			Choices: []inference.ChatChoice{{Message: inference.ChatMessage{Content: "ok"}}},
		})
	}))
	defer apiServer.Close()

	client := New(Config{AuthKey: "key", AuthURL: authServer.URL, BaseURL: apiServer.URL}, zap.NewNop())

	r := client.Rephrase(context.Background(), "q", "a")
	if !r.Success {
		t.Fatalf("Rephrase() failure = %v", r.Failure)
	}
	if authCalls != 2 || apiCalls != 2 {
		t.Errorf("auth calls = %d, api calls = %d, want 2 and 2", authCalls, apiCalls)
	}
}

func TestClient_MissingKey(t *testing.T) {
	r := New(Config{}, zap.NewNop()).Rephrase(context.Background(), "q", "a")

	if r.Success || r.Failure.Kind != domain.FailureInvalidInput {
		t.Fatalf("result = %+v, want invalid_input", r)
	}
	if !errors.Is(r.Failure, inference.ErrMissingAPIKey) {
		t.Errorf("Failure = %v", r.Failure)
	}
	if !strings.Contains(string(r.Failure.Payload), "API key") {
		t.Errorf("Payload = %s", r.Failure.Payload)
	}
}
