package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/metrics"
	"github.com/kitbuilder587/webqa/internal/ratelimit"
)

const defaultMaxRetries = 10

// Sleeper ждёт d или отмены ctx. В тестах подменяется, чтобы не спать по-настоящему.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type InvokerConfig struct {
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Sleep      Sleeper
	// Limiter ограничивает запросы на модель, nil - без ограничений
	Limiter *ratelimit.Limiter[string]
}

// Invoker - HTTP транспорт до inference эндпоинтов с ретраями на загрузку модели.
type Invoker struct {
	apiKey     string
	client     *http.Client
	maxRetries int
	sleep      Sleeper
	limiter    *ratelimit.Limiter[string]
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewInvoker(cfg InvokerConfig, logger *zap.Logger, m *metrics.Metrics) *Invoker {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Sleep == nil {
		cfg.Sleep = SleepContext
	}

	return &Invoker{
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		sleep:      cfg.Sleep,
		limiter:    cfg.Limiter,
		logger:     logger,
		metrics:    m,
	}
}

// Invoke отправляет payload на endpoint и декодирует ответ в T.
//
// Ответ-список из одного элемента разворачивается. Ошибка вида "model ... loading"
// считается временной: ждём estimated_time миллисекунд и отправляем запрос заново,
// не больше maxRetries раз. Любая другая ошибка модели фатальна, сырой ответ
// сохраняется в Failure.Payload. Отсутствие поля field - malformed.
func Invoke[T any](ctx context.Context, inv *Invoker, endpoint string, payload any, field string) domain.Result[T] {
	model := modelLabel(endpoint)
	start := time.Now()

	res := invoke[T](ctx, inv, endpoint, model, payload, field)

	status := "success"
	if !res.Success {
		status = string(res.Failure.Kind)
		inv.logger.Warn("inference call failed",
			zap.String("model", model),
			zap.String("kind", status),
			zap.Error(res.Failure.Err),
		)
	}
	inv.metrics.RecordInference(model, status, time.Since(start))

	return res
}

func invoke[T any](ctx context.Context, inv *Invoker, endpoint, model string, payload any, field string) domain.Result[T] {
	if inv.apiKey == "" {
		return domain.Fail[T](domain.NewFailure(domain.FailureInvalidInput, nil, ErrMissingAPIKey))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Fail[T](domain.NewFailure(domain.FailureInvalidInput, nil, fmt.Errorf("marshal payload: %w", err)))
	}

	retries := 0
	for {
		if inv.limiter != nil {
			if err := inv.limiter.Wait(ctx, model); err != nil {
				return domain.Fail[T](domain.NewFailure(domain.FailureTransport, nil, err))
			}
		}

		raw, statusCode, err := inv.post(ctx, endpoint, body)
		if err != nil {
			return domain.Fail[T](domain.NewFailure(domain.FailureTransport, nil, err))
		}

		if !json.Valid(raw) {
			synthesized, _ := json.Marshal(map[string]any{"status": statusCode, "body": string(raw)})
			return domain.Fail[T](domain.NewFailure(domain.FailureTransport, synthesized,
				fmt.Errorf("%w: non-JSON response, status %d", ErrRequestFailed, statusCode)))
		}

		obj, objRaw, ok := unwrapObject(raw)
		if !ok {
			return domain.Fail[T](domain.NewFailure(domain.FailureMalformed, raw, ErrMalformedResponse))
		}

		if errField, has := obj["error"]; has {
			msg := errorMessage(errField)
			if !isLoading(msg) {
				return domain.Fail[T](domain.NewFailure(domain.FailureModelError, objRaw,
					fmt.Errorf("%w: %s", ErrModelError, msg)))
			}

			if retries >= inv.maxRetries {
				return domain.Fail[T](domain.NewFailure(domain.FailureRetryExhausted, objRaw,
					fmt.Errorf("%w: %d retries", ErrRetryExhausted, retries)))
			}
			retries++

			wait := estimatedWait(obj["estimated_time"])
			inv.logger.Info("model is loading, retrying",
				zap.String("model", model),
				zap.Duration("wait", wait),
				zap.Int("retry", retries),
			)
			inv.metrics.RecordLoadingRetry(model)

			if err := inv.sleep(ctx, wait); err != nil {
				return domain.Fail[T](domain.NewFailure(domain.FailureTransport, nil, err))
			}
			continue
		}

		if _, has := obj[field]; !has {
			return domain.Fail[T](domain.NewFailure(domain.FailureMalformed, objRaw,
				fmt.Errorf("%w: missing %q", ErrMalformedResponse, field)))
		}

		var value T
		if err := json.Unmarshal(objRaw, &value); err != nil {
			return domain.Fail[T](domain.NewFailure(domain.FailureMalformed, objRaw,
				fmt.Errorf("%w: %v", ErrMalformedResponse, err)))
		}

		return domain.Ok(value)
	}
}

func (inv *Invoker) post(ctx context.Context, endpoint string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+inv.apiKey)

	return DoRequest(inv.client, req)
}

// unwrapObject разворачивает [obj] в obj.
func unwrapObject(raw []byte) (map[string]json.RawMessage, json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil || len(list) == 0 {
			return nil, nil, false
		}
		trimmed = list[0]
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
		return nil, nil, false
	}
	return obj, json.RawMessage(trimmed), true
}

func errorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return string(raw)
}

func isLoading(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "model") && strings.Contains(msg, "loading")
}

// estimated_time трактуется как миллисекунды
func estimatedWait(raw json.RawMessage) time.Duration {
	if len(raw) == 0 {
		return 0
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil || ms < 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// modelLabel - "deepset/roberta-base-squad2" из ".../models/deepset/roberta-base-squad2"
func modelLabel(endpoint string) string {
	if i := strings.Index(endpoint, "/models/"); i >= 0 {
		return endpoint[i+len("/models/"):]
	}
	return endpoint
}
