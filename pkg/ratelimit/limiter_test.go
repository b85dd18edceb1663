package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "bucket must be empty after capacity requests")
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, tb.Allow(), "bucket must refill after the period")
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(2, time.Minute)

	tb.Allow()
	tb.Allow()
	assert.False(t, tb.Allow())

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestWaitBlocksUntilRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)
	tb.Allow()

	start := time.Now()
	tb.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
