package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/memocache/internal/cache"
)

func TestRateLimit(t *testing.T) {
	calls := 0
	next := cache.SourceFunc[string](func(_ context.Context, key string) (string, error) {
		calls++
		return "value-" + key, nil
	})

	limited := RateLimit[string](next, 50*time.Millisecond, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		v, err := limited.Query(context.Background(), "k")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if v != "value-k" {
			t.Errorf("Query = %q, want value-k", v)
		}
	}

	// The first call uses the burst token, the next two wait one interval each.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Queries were not rate limited: took %s", elapsed)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRateLimit_ContextCanceled(t *testing.T) {
	calls := 0
	next := cache.SourceFunc[string](func(context.Context, string) (string, error) {
		calls++
		return "v", nil
	})

	limited := RateLimit[string](next, time.Hour, 1)
	if _, err := limited.Query(context.Background(), "k"); err != nil {
		t.Fatalf("First query should use the burst token: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := limited.Query(ctx, "k"); err == nil {
		t.Error("Expected an error once the context is canceled")
	}
	if calls != 1 {
		t.Errorf("The wrapped source was called %d times, want 1", calls)
	}
}

func TestRateLimit_SourceError(t *testing.T) {
	errBoom := errors.New("boom")
	next := cache.SourceFunc[string](func(context.Context, string) (string, error) {
		return "", errBoom
	})

	limited := RateLimit[string](next, time.Millisecond, 0)
	if _, err := limited.Query(context.Background(), "k"); !errors.Is(err, errBoom) {
		t.Errorf("Expected the source error unchanged, got %v", err)
	}
}
