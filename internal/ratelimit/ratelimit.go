package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Error signals that a (client, media) pair exceeded its window budget.
// It carries the limit and window so callers can render a message.
type Error struct {
	Limit  int
	Window time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded: max %d requests per %s", e.Limit, e.Window)
}

// Limiter enforces a fixed-window request budget per
// (client address, media ID) pair.
//
// Counters live in Redis so the window is shared across processes:
// INCR the key, set the window expiry when this increment opened the
// window, reject once the count exceeds the limit. INCR is atomic, so
// two concurrent requests can never both observe count 1.
//
// When no Redis client is available the limiter degrades to an
// in-process counter map with the same fixed-window semantics: each
// entry remembers when its window lapses and is reset on the next
// request after that.
type Limiter struct {
	rdb    redis.UniversalClient // nil when the shared store is unavailable
	limit  int
	window time.Duration
	log    *logrus.Logger

	mu    sync.Mutex
	local map[string]*localWindow

	now func() time.Time
}

type localWindow struct {
	count   int
	resetAt time.Time
}

// New creates a limiter. rdb may be nil; the limiter then runs entirely
// in process.
func New(rdb redis.UniversalClient, limit int, window time.Duration, log *logrus.Logger) *Limiter {
	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		log:    log,
		local:  make(map[string]*localWindow),
		now:    time.Now,
	}
}

// Allow admits or rejects one request for the given pair. It returns
// nil when admitted and *Error when the budget is exhausted. A Redis
// round-trip failure degrades to the in-process counter for that call
// rather than failing the request.
func (l *Limiter) Allow(ctx context.Context, clientAddr, mediaID string) error {
	if l.rdb == nil {
		return l.allowLocal(clientAddr, mediaID)
	}

	key := fmt.Sprintf("rate:%s:%s", clientAddr, mediaID)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.log.WithError(err).Warn("Rate limiter falling back to in-process counter")
		return l.allowLocal(clientAddr, mediaID)
	}
	if count == 1 {
		// First hit in this window opens it.
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			l.log.WithError(err).WithField("key", key).Warn("Failed to set rate limit window expiry")
		}
	}

	if count > int64(l.limit) {
		l.log.WithField("key", key).Warn("Rate limit exceeded")
		return &Error{Limit: l.limit, Window: l.window}
	}
	return nil
}

func (l *Limiter) allowLocal(clientAddr, mediaID string) error {
	key := clientAddr + ":" + mediaID
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.local[key]
	if !ok || now.After(w.resetAt) {
		w = &localWindow{resetAt: now.Add(l.window)}
		l.local[key] = w
	}
	w.count++

	if w.count > l.limit {
		l.log.WithField("key", key).Warn("Rate limit exceeded (in-process)")
		return &Error{Limit: l.limit, Window: l.window}
	}
	return nil
}
