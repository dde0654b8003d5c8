package services

import (
	"testing"
	"time"
)

func TestCooldown(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	c := NewCooldown(5 * time.Second)
	c.clock = func() time.Time { return now }

	if got := c.Remaining("u1"); got != 0 {
		t.Errorf("first use remaining = %v, want 0", got)
	}

	now = now.Add(2 * time.Second)
	if got := c.Remaining("u1"); got != 3*time.Second {
		t.Errorf("remaining = %v, want 3s", got)
	}
	// a blocked check must not restamp the window
	now = now.Add(time.Second)
	if got := c.Remaining("u1"); got != 2*time.Second {
		t.Errorf("remaining = %v, want 2s", got)
	}

	// other users are independent
	if got := c.Remaining("u2"); got != 0 {
		t.Errorf("other user remaining = %v, want 0", got)
	}

	now = now.Add(3 * time.Second)
	if got := c.Remaining("u1"); got != 0 {
		t.Errorf("expired remaining = %v, want 0", got)
	}
}

func TestCooldown_ZeroWindowDisabled(t *testing.T) {
	c := NewCooldown(0)
	for i := 0; i < 3; i++ {
		if got := c.Remaining("u1"); got != 0 {
			t.Errorf("remaining = %v, want 0", got)
		}
	}
}
