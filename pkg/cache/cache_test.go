package cache

import (
	"errors"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New[string]()
	c.Set("key1", "value1", time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	now := time.Now()
	c := New[int]()
	c.now = func() time.Time { return now }

	c.Set("key1", 1, 100*time.Millisecond)
	now = now.Add(150 * time.Millisecond)
	if _, ok := c.Get("key1"); ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestGetOrLoad(t *testing.T) {
	c := New[error]()
	calls := 0
	probe := func() error {
		calls++
		return errors.New("down")
	}

	first := c.GetOrLoad("redis", time.Minute, probe)
	second := c.GetOrLoad("redis", time.Minute, probe)
	if first == nil || second != first {
		t.Fatalf("expected the cached error back, got %v and %v", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected one load, got %d", calls)
	}
}
