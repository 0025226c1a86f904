package net

import (
	"sync"
	"time"
)

// ipRateLimiter caps datagrams per source IP with a fixed one-second window.
// A fixed window lets bursts of up to 2x through at the boundary, which is
// acceptable: the cap exists to stop floods, not to shape traffic.
type ipRateLimiter struct {
	mu      sync.Mutex
	limit   int
	windows map[string]*ipWindow
	now     func() time.Time
}

type ipWindow struct {
	start time.Time
	count int
}

func newIPRateLimiter(limit int) *ipRateLimiter {
	return &ipRateLimiter{
		limit:   limit,
		windows: make(map[string]*ipWindow),
		now:     time.Now,
	}
}

// Allow reports whether a datagram from ip fits within the current window.
func (rl *ipRateLimiter) Allow(ip string) bool {
	if rl.limit <= 0 {
		return true
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.start) >= time.Second {
		rl.windows[ip] = &ipWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

// Sweep drops windows idle for longer than a second so the map does not grow
// with every IP ever seen. Called from the UDP listener on a slow timer.
func (rl *ipRateLimiter) Sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, w := range rl.windows {
		if now.Sub(w.start) >= 2*time.Second {
			delete(rl.windows, ip)
		}
	}
}
