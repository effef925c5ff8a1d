package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	req := require.New(t)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(RateLimitConfig{Burst: 3, RefillInterval: time.Second})
	rl.now = func() time.Time { return clock }
	rl.lastCheck = clock

	// Given a full bucket of three tokens
	for i := 0; i < 3; i++ {
		req.True(rl.allow(), "token %d", i)
	}
	req.False(rl.allow())

	// When half the interval elapses, one and a half tokens come back
	clock = clock.Add(time.Second / 2)
	req.True(rl.allow())
	req.False(rl.allow())

	// And a long pause never overfills the bucket
	clock = clock.Add(time.Hour)
	for i := 0; i < 3; i++ {
		req.True(rl.allow())
	}
	req.False(rl.allow())
}

func TestRateLimiter_NonPositiveConfigFallsBack(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{})
	require.True(t, rl.allow())
	require.False(t, rl.allow())
}
