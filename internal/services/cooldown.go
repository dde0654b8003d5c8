// Package services – per-user cooldown guard
//
// An explicitly owned replacement for the original's module-level cooldown
// table: constructed at startup, consulted by command handlers, safe for
// concurrent use.
package services

import (
	"sync"
	"time"
)

// Cooldown tracks the last use per user and enforces a fixed window.
type Cooldown struct {
	window time.Duration
	clock  func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldown constructs a Cooldown with the given window. A zero window
// disables the guard.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window: window,
		clock:  time.Now,
		last:   make(map[string]time.Time),
	}
}

// Remaining returns how long userID must still wait, stamping the use when
// the user is allowed (returns 0).
func (c *Cooldown) Remaining(userID string) time.Duration {
	if c.window <= 0 {
		return 0
	}
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.last[userID]; ok {
		if remain := c.window - now.Sub(last); remain > 0 {
			return remain
		}
	}
	c.last[userID] = now
	return 0
}
