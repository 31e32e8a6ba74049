package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsUpToMax(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("fourth request should be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("other clients are limited separately")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	l := NewLimiter(1, 20*time.Millisecond)
	defer l.Stop()

	if !l.Allow("k") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("k") {
		t.Fatal("second request inside the window should be limited")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("k") {
		t.Fatal("request after the window should be allowed")
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, time.Minute)
	l.Stop()
	l.Stop()

	for i := 0; i < 10; i++ {
		if !l.Allow("k") {
			t.Fatal("zero limit disables limiting")
		}
	}
	if !l.Allow("") {
		t.Fatal("empty key is never limited")
	}
}

func TestReserveReportsRetryAfter(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	defer l.Stop()

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	l.now = func() time.Time { return clock }

	l.Allow("k")
	clock = start.Add(10 * time.Second)
	l.Allow("k")

	clock = start.Add(20 * time.Second)
	ok, wait := l.Reserve("k")
	if ok {
		t.Fatal("third request should be limited")
	}
	if wait != 40*time.Second {
		t.Fatalf("retry after %s, want 40s", wait)
	}

	clock = start.Add(61 * time.Second)
	if ok, _ := l.Reserve("k"); !ok {
		t.Fatal("oldest request has left the window")
	}
}
