package source

import (
	"context"
	"time"

	"github.com/dgnsrekt/memocache/internal/cache"
	"golang.org/x/time/rate"
)

// Limited wraps a Source with a token bucket so cache misses cannot flood the
// remote end.
type Limited[V any] struct {
	next    cache.Source[V]
	limiter *rate.Limiter
}

// RateLimit allows one query per interval with the given burst.
func RateLimit[V any](next cache.Source[V], interval time.Duration, burst int) *Limited[V] {
	if burst < 1 {
		burst = 1
	}
	return &Limited[V]{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Query waits for a token and then queries the wrapped source. It fails with
// the context error if ctx ends first.
func (l *Limited[V]) Query(ctx context.Context, key string) (V, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		var zero V
		return zero, err
	}
	return l.next.Query(ctx, key)
}
