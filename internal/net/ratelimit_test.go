package net

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newIPRateLimiter(3)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "第 4 個封包超限")

	// Another IP has its own window.
	assert.True(t, rl.Allow("10.0.0.2"))

	// Window rolls over after a second.
	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newIPRateLimiter(3)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(3 * time.Second)
	rl.Sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.windows)
}

func TestRateLimiterUnlimited(t *testing.T) {
	rl := newIPRateLimiter(0)
	for i := 0; i < 1000; i++ {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
}
