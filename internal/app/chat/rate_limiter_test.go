package chat

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("first two sends rejected")
	}
	if rl.Allow() {
		t.Fatal("third send inside window allowed")
	}

	now = now.Add(1100 * time.Millisecond)
	if !rl.Allow() {
		t.Fatal("send after window rejected")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RateLimiter
	if !nilLimiter.Allow() {
		t.Error("nil limiter rejected")
	}
	rl := NewRateLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		if !rl.Allow() {
			t.Fatalf("disabled limiter rejected send %d", i)
		}
	}
}
