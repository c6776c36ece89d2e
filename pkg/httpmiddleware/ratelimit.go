package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by the first X-Forwarded-For hop, X-Real-IP, or the
// remote address, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Throttle rejects requests over the limit with 429. Limiter errors are
// logged and the request is let through.
func Throttle(l Limiter, key KeyFunc) Middleware {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), key(r))
			if err != nil {
				zctx.From(r.Context()).Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
			if !d.Allowed {
				wait := max(time.Until(d.Reset), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// window holds counts for the current and previous fixed windows of a key.
type window struct {
	start      time.Time
	curr, prev float64
}

// WindowLimiter is an in-process sliding window limiter: the previous
// window's count is weighted by how much of it the sliding window still
// covers.
type WindowLimiter struct {
	max    int
	size   time.Duration
	now    func() time.Time
	mu     sync.Mutex
	byKey  map[string]*window
	lastGC time.Time
}

// NewWindowLimiter allows limit requests per size window and key.
func NewWindowLimiter(limit int, size time.Duration) *WindowLimiter {
	return &WindowLimiter{
		max:   limit,
		size:  size,
		now:   time.Now,
		byKey: make(map[string]*window),
	}
}

// Allow implements Limiter.
func (l *WindowLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	start := now.Truncate(l.size)
	l.collect(start)

	w, ok := l.byKey[key]
	switch {
	case !ok:
		w = &window{start: start}
		l.byKey[key] = w
	case start.Sub(w.start) >= 2*l.size:
		*w = window{start: start}
	case start.After(w.start):
		*w = window{start: start, prev: w.curr}
	}

	covered := 1 - float64(now.Sub(start))/float64(l.size)
	used := w.prev*covered + w.curr
	d := Decision{Limit: l.max, Reset: start.Add(l.size)}
	if used >= float64(l.max) {
		return d, nil
	}
	w.curr++
	d.Allowed = true
	d.Remaining = max(l.max-int(math.Ceil(used+1)), 0)
	return d, nil
}

// collect drops keys idle for two windows, at most once per window.
func (l *WindowLimiter) collect(start time.Time) {
	if !start.After(l.lastGC) {
		return
	}
	l.lastGC = start
	for k, w := range l.byKey {
		if start.Sub(w.start) >= 2*l.size {
			delete(l.byKey, k)
		}
	}
}
