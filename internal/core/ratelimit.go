package core

import "time"

// Rate limiter defaults: a connection may attempt at most 30 joins in
// any trailing 60-second window. Chunk traffic is deliberately not
// admission-checked so throughput stays uncapped.
const (
	RateLimitEvents = 30
	RateLimitWindow = time.Minute
)

// RateLimiter is a per-connection sliding-window admission check.
// It is owned by the hub goroutine and needs no locking.
type RateLimiter struct {
	limit   int
	window  time.Duration
	records map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter builds a limiter admitting limit events per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		records: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records and admits an event if fewer than limit timestamps fall
// within the trailing window. Denied attempts are not recorded. Stale
// timestamps are pruned on every check.
func (r *RateLimiter) Allow(id string) bool {
	now := r.now()
	kept := r.prune(r.records[id], now)
	if len(kept) >= r.limit {
		r.records[id] = kept
		return false
	}
	r.records[id] = append(kept, now)
	return true
}

// Forget drops all state for a connection, typically on disconnect.
func (r *RateLimiter) Forget(id string) {
	delete(r.records, id)
}

// Sweep removes records with no timestamps remaining in the window.
func (r *RateLimiter) Sweep() {
	now := r.now()
	for id, stamps := range r.records {
		kept := r.prune(stamps, now)
		if len(kept) == 0 {
			delete(r.records, id)
			continue
		}
		r.records[id] = kept
	}
}

func (r *RateLimiter) prune(stamps []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
