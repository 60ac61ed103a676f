package inference

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
)

// Общее для chat completions API (OpenRouter, GigaChat). Они годятся только
// на роль Rephraser: extractive QA у них нет.

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
	Error   *ChatError   `json:"error,omitempty"`
}

type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

type ChatError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// RephraseChat кладёт one-shot промпт в user-сообщение, system задаёт формат ответа.
func RephraseChat(model, system, question, answer string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: FormalAnswerPrompt(question, answer)},
		},
	}
}

// ChatGeneration превращает ответ chat API в Generation.
func ChatGeneration(statusCode int, body []byte, logger *zap.Logger, provider string) domain.Result[domain.Generation] {
	if statusCode != http.StatusOK {
		return FailGeneration(domain.FailureModelError, jsonOrNil(body), statusError(statusCode, body, logger, provider))
	}

	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return FailGeneration(domain.FailureMalformed, nil, fmt.Errorf("unmarshal response: %w", err))
	}
	if resp.Error != nil {
		return FailGeneration(domain.FailureModelError, body, fmt.Errorf("%w: %s", ErrModelError, resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return FailGeneration(domain.FailureMalformed, body, ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return FailGeneration(domain.FailureMalformed, body, ErrEmptyResponse)
	}
	return domain.Ok(domain.Generation{GeneratedText: text})
}

func FailGeneration(kind domain.FailureKind, payload []byte, err error) domain.Result[domain.Generation] {
	return domain.Fail[domain.Generation](domain.NewFailure(kind, payload, err))
}

func statusError(statusCode int, body []byte, logger *zap.Logger, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusTooManyRequests:
		return ErrRateLimit
	}
	logger.Error("rephrase request failed",
		zap.String("provider", provider),
		zap.Int("status", statusCode),
		zap.String("body", string(body)),
	)
	return fmt.Errorf("%w: %s status %d", ErrRequestFailed, provider, statusCode)
}

// jsonOrNil - payload у Failure должен быть валидным JSON
func jsonOrNil(body []byte) []byte {
	if json.Valid(body) {
		return body
	}
	return nil
}

// DoRequest читает тело целиком, статус не проверяет: HF отдаёт JSON с ошибкой и на 503.
func DoRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
