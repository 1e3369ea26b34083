package handlers

import (
	"testing"
	"time"
)

func TestFixedWindowLimiter(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	limiter := newFixedWindowLimiter(2, time.Minute, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if ok, _ := limiter.Allow("cust-1"); !ok {
			t.Fatalf("call %d: expected allowed", i)
		}
	}
	now = now.Add(20 * time.Second)
	ok, retryAfter := limiter.Allow("cust-1")
	if ok {
		t.Fatalf("expected third call to be limited")
	}
	if retryAfter != 40*time.Second {
		t.Fatalf("expected retry after 40s, got %s", retryAfter)
	}
	if ok, _ := limiter.Allow("cust-2"); !ok {
		t.Fatalf("expected other caller to be allowed")
	}

	now = now.Add(40 * time.Second)
	if ok, _ := limiter.Allow("cust-1"); !ok {
		t.Fatalf("expected window reset to allow")
	}
}

func TestFixedWindowLimiterDisabled(t *testing.T) {
	if limiter := newFixedWindowLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatalf("expected nil limiter for zero limit")
	}
}
