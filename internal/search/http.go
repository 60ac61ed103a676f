package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

var DefaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Do выполняет запрос с ретраями на 5xx и сетевых ошибках.
// newReq вызывается на каждую попытку, т.к. тело запроса читается один раз.
// Коды 400/401/429 маппятся в sentinel-ошибки без ретраев.
func Do(ctx context.Context, client *http.Client, backoff []time.Duration, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= len(backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff[attempt-1]):
			}
		}

		httpReq, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("do request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return respBody, nil
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, ErrUnauthorized
		case http.StatusTooManyRequests:
			return nil, ErrRateLimit
		case http.StatusBadRequest:
			return nil, ErrInvalidRequest
		default:
			if resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, resp.StatusCode)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, lastErr)
	}
	return nil, ErrSearchFailed
}
