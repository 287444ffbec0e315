package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mediastream/streaming-app/internal/logging"
)

func TestStoreWithoutBackendDegradesToMiss(t *testing.T) {
	s := New(nil, logging.NewLogger())
	ctx := context.Background()

	val, ok := s.Get(ctx, "analytics:abc")
	assert.False(t, ok)
	assert.Nil(t, val)

	// Set must be a silent no-op, not a failure.
	s.Set(ctx, "analytics:abc", []byte(`{"total_views":1}`), time.Minute)

	_, ok = s.Get(ctx, "analytics:abc")
	assert.False(t, ok)
}
