package domain

import (
	"encoding/json"
	"fmt"
)

type FailureKind string

const (
	FailureModelError     FailureKind = "model_error"
	FailureMalformed      FailureKind = "malformed"
	FailureRetryExhausted FailureKind = "retry_exhausted"
	FailureTransport      FailureKind = "transport"
	FailureInvalidInput   FailureKind = "invalid_input"
)

// Failure - неуспешный исход вызова модели. Payload хранит сырой ответ
// эндпоинта (или синтезированный JSON для транспортных ошибок) для диагностики.
type Failure struct {
	Kind    FailureKind
	Payload json.RawMessage
	Err     error
}

func NewFailure(kind FailureKind, payload json.RawMessage, err error) *Failure {
	if len(payload) == 0 {
		msg := string(kind)
		if err != nil {
			msg = err.Error()
		}
		payload, _ = json.Marshal(map[string]string{"error": msg})
	}
	return &Failure{Kind: kind, Payload: payload, Err: err}
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, string(f.Payload))
}

func (f *Failure) Unwrap() error { return f.Err }

// Result - размеченный результат стадии: либо Value, либо Failure.
type Result[T any] struct {
	Success bool
	Value   T
	Failure *Failure
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Success: true, Value: v}
}

func Fail[T any](f *Failure) Result[T] {
	return Result[T]{Failure: f}
}

// Propagate переносит неуспех одной стадии в результат другого типа.
func Propagate[T, U any](r Result[U]) Result[T] {
	return Result[T]{Failure: r.Failure}
}

// MarshalJSON отдаёт контракт финального ответа: {"success": ..., "result": ...}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success bool `json:"success"`
			Result  T    `json:"result"`
		}{true, r.Value})
	}

	payload := json.RawMessage(`null`)
	if r.Failure != nil && len(r.Failure.Payload) > 0 {
		payload = r.Failure.Payload
	}
	return json.Marshal(struct {
		Success bool            `json:"success"`
		Result  json.RawMessage `json:"result"`
	}{false, payload})
}

// Answer - финальный ответ пользователю.
type Answer = Result[string]

// Extraction - ответ extractive QA модели.
type Extraction struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// Generation - ответ модели перефразирования.
type Generation struct {
	GeneratedText string `json:"generated_text"`
}
