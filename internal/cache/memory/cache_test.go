package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	cache := New[string](Config{})
	defer cache.Stop()

	cache.Set("test-key", "test-value", 5*time.Second)

	got, ok := cache.Get("test-key")
	if !ok {
		t.Error("Get() should return ok=true for existing key")
	}
	if got != "test-value" {
		t.Errorf("Get() = %v, want test-value", got)
	}
}

func TestCache_GetNonExistent(t *testing.T) {
	cache := New[*int](Config{})
	defer cache.Stop()

	got, ok := cache.Get("non-existent")
	if ok {
		t.Error("Get() should return ok=false for non-existent key")
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := New[string](Config{})
	defer cache.Stop()

	cache.Set("expiring-key", "expiring-value", 50*time.Millisecond)

	if _, ok := cache.Get("expiring-key"); !ok {
		t.Error("Key should exist before TTL expiration")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("expiring-key"); ok {
		t.Error("Key should not exist after TTL expiration")
	}
}

func TestCache_CleanupRemovesExpired(t *testing.T) {
	cache := New[int](Config{CleanupInterval: 10 * time.Millisecond})
	defer cache.Stop()

	cache.Set("short", 1, time.Millisecond)
	cache.Set("long", 2, time.Hour)

	deadline := time.Now().Add(time.Second)
	for cache.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after cleanup", cache.Len())
	}
	if v, ok := cache.Get("long"); !ok || v != 2 {
		t.Error("live entry removed by cleanup")
	}
}

func TestCache_Delete(t *testing.T) {
	cache := New[string](Config{})
	defer cache.Stop()

	cache.Set("delete-key", "delete-value", time.Hour)

	if _, ok := cache.Get("delete-key"); !ok {
		t.Error("Key should exist before delete")
	}

	cache.Delete("delete-key")

	if _, ok := cache.Get("delete-key"); ok {
		t.Error("Key should not exist after delete")
	}
}

func TestCache_Overwrite(t *testing.T) {
	cache := New[string](Config{})
	defer cache.Stop()

	cache.Set("overwrite-key", "value1", time.Hour)
	cache.Set("overwrite-key", "value2", time.Hour)

	got, _ := cache.Get("overwrite-key")
	if got != "value2" {
		t.Errorf("Get() = %v, want value2 after overwrite", got)
	}
}

func TestCache_Stop(t *testing.T) {
	cache := New[string](Config{})

	cache.Stop()

	cache.Stop()
}

func TestCache_NewWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cache := NewWithContext[string](ctx, Config{})

	cache.Set("ctx-key", "ctx-value", time.Hour)

	if got, ok := cache.Get("ctx-key"); !ok || got != "ctx-value" {
		t.Error("Cache should work before context cancel")
	}

	cancel()

	time.Sleep(10 * time.Millisecond)

	cache.Set("another", "value", time.Hour)
	if _, ok := cache.Get("another"); !ok {
		t.Error("Cache should still work after context cancel")
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := New[int](Config{})
	defer cache.Stop()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			cache.Set("concurrent-key", i, time.Hour)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			cache.Get("concurrent-key")
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			cache.Delete("concurrent-key")
			time.Sleep(time.Microsecond)
		}
	}()

	wg.Wait()
}
