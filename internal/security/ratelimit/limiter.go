package ratelimit

import (
	"sync"
	"time"
)

const sweepEvery = 5 * time.Minute

// Limiter allows at most limit requests per key within any sliding window.
// A background sweeper forgets keys that have been quiet for a full window.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter. limit <= 0 disables it. Call Stop when done.
func NewLimiter(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
	}
	go l.sweep(sweepEvery)
	return l
}

// Allow records a request for key and reports whether it was within the limit
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Reserve(key)
	return ok
}

// Reserve is Allow that also reports, on rejection, how long until the
// oldest request in the window expires. Rejected requests are not recorded.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	if key == "" || l.limit <= 0 {
		return true, 0
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(key, now)
	if len(recent) >= l.limit {
		return false, recent[0].Add(l.window).Sub(now)
	}
	l.hits[key] = append(recent, now)
	return true, 0
}

// Window returns the sliding window length
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Stop ends the sweeper. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// prune drops timestamps older than the window. Caller holds l.mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	stamps := l.hits[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	stamps = stamps[i:]
	if len(stamps) == 0 {
		delete(l.hits, key)
		return nil
	}
	l.hits[key] = stamps
	return stamps
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			now := l.now()
			l.mu.Lock()
			for key := range l.hits {
				l.prune(key, now)
			}
			l.mu.Unlock()
		}
	}
}
