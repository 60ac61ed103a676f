package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter - sliding window лимитер по ключу: id пользователя в боте,
// имя модели для inference эндпоинтов.
type Limiter[K comparable] struct {
	mu       sync.Mutex
	requests map[K][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

type Config struct {
	RequestsPerMinute int
	// Window по умолчанию минута, в тестах короче
	Window time.Duration
}

func New[K comparable](cfg Config) *Limiter[K] {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 10
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	l := &Limiter[K]{
		requests: make(map[K][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *Limiter[K]) Allow(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	fresh := l.fresh(key, now)

	if len(fresh) >= l.limit {
		l.requests[key] = fresh
		return false
	}

	l.requests[key] = append(fresh, now)
	return true
}

// Wait блокируется, пока ключ не получит слот, или до отмены ctx.
func (l *Limiter[K]) Wait(ctx context.Context, key K) error {
	for {
		if l.Allow(key) {
			return nil
		}

		delay := time.Until(l.ResetTime(key))
		if delay <= 0 {
			delay = time.Millisecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter[K]) RemainingRequests(key K) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	cnt := 0
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			cnt++
		}
	}

	if rem := l.limit - cnt; rem > 0 {
		return rem
	}
	return 0
}

// ResetTime - когда освободится ближайший слот (приблизительно)
func (l *Limiter[K]) ResetTime(key K) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.requests[key]
	if len(ts) == 0 {
		return time.Now()
	}

	oldest := ts[0]
	for _, t := range ts[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}
	return oldest.Add(l.window)
}

// Stop останавливает фоновую очистку.
func (l *Limiter[K]) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// вызывать под mu
func (l *Limiter[K]) fresh(key K, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	old := l.requests[key]
	fresh := old[:0] // reuse underlying array
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

func (l *Limiter[K]) cleanup() {
	tick := time.NewTicker(5 * time.Minute)
	defer tick.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-tick.C:
		}

		l.mu.Lock()
		now := time.Now()
		for key := range l.requests {
			if fresh := l.fresh(key, now); len(fresh) == 0 {
				delete(l.requests, key)
			} else {
				l.requests[key] = fresh
			}
		}
		l.mu.Unlock()
	}
}
