package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/pkg/httpmiddleware"
)

var _ httpmiddleware.Limiter = (*Limiter)(nil)

// Limiter is a fixed window rate limiter shared by all replicas through
// Redis. Counters live under "ratelimit:<prefix>:<key>:<window start>".
type Limiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewLimiter allows limit requests per window for each key.
func NewLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *Limiter) key(key string, start time.Time) string {
	return "ratelimit:" + l.prefix + ":" + key + ":" + start.UTC().Format("20060102T150405")
}

// Allow implements httpmiddleware.Limiter.
func (l *Limiter) Allow(ctx context.Context, key string) (httpmiddleware.Decision, error) {
	start := l.now().Truncate(l.window)
	k := l.key(key, start)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return httpmiddleware.Decision{}, errors.Wrap(err, "incr")
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return httpmiddleware.Decision{}, errors.Wrap(err, "expire")
		}
	}

	return httpmiddleware.Decision{
		Allowed:   n <= int64(l.limit),
		Limit:     l.limit,
		Remaining: max(l.limit-int(n), 0),
		Reset:     start.Add(l.window),
	}, nil
}
