package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("api") || !l.Allow("api") {
		t.Fatalf("burst should be allowed")
	}
	if l.Allow("api") {
		t.Fatalf("third call should be limited")
	}
	if !l.Allow("other") {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.Allow("api") {
		t.Fatalf("expected a refilled token")
	}
	if l.Allow("api") {
		t.Fatalf("only one token should have refilled")
	}
}
