package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store is a read-through accelerator over Redis. It is never a source
// of truth: every failure, including an absent Redis client, presents
// as a cache miss so callers simply recompute.
type Store struct {
	rdb redis.UniversalClient // nil when the shared store is unavailable
	log *logrus.Logger
}

// New creates a store. rdb may be nil; Get then always misses and Set
// is a no-op.
func New(rdb redis.UniversalClient, log *logrus.Logger) *Store {
	return &Store{rdb: rdb, log: log}
}

// Get returns the cached value for key, or ok=false on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if s.rdb == nil {
		return nil, false
	}
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).WithField("key", key).Warn("Cache read failed, treating as miss")
		}
		return nil, false
	}
	return val, true
}

// Set stores value under key for ttl. Failures are logged and
// swallowed; the caller already holds the computed value.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
