// Package inference вызывает hosted модели: extractive QA и перефразирование.
// Неуспехи моделей возвращаются значениями domain.Result, а не ошибками.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/kitbuilder587/webqa/internal/domain"
)

var (
	ErrMissingAPIKey     = errors.New("inference API key is not configured")
	ErrInvalidModelIndex = errors.New("model index out of range")
	ErrModelError        = errors.New("model returned an error")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrRetryExhausted    = errors.New("model still loading after retries")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrRequestFailed     = errors.New("request failed")
	ErrEmptyResponse     = errors.New("empty response")
	ErrRateLimit         = errors.New("rate limit exceeded")
)

type Extractor interface {
	Extract(ctx context.Context, question, content string, modelIndex int) domain.Result[domain.Extraction]
}

type Rephraser interface {
	Rephrase(ctx context.Context, question, answer string) domain.Result[domain.Generation]
}

const formalAnswerTemplate = `Rewrite the Answer to Formal Answer according to the Question. Don't Exclude or Modify anything from Target Answer,
Example:
Q: Who is Iron Man?
A: Tony Stark
FA: Tony Stark is Iron Man.

Target:
Q: %s
A: %s
FA:`

// FormalAnswerPrompt - one-shot промпт для перефразирования ответа в предложение.
func FormalAnswerPrompt(question, answer string) string {
	return fmt.Sprintf(formalAnswerTemplate, question, answer)
}
