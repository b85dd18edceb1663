package backup

import (
	"sync"
	"time"
)

// Lease is the process-wide single-flight guard for the crawl loop.
// Holding it means a crawl may run; the holder's deadline must be
// extended by consumer polling or the loop gives up at its next page
// boundary. Generations stop a stale holder from extending or
// releasing a lease that has since been re-acquired.
type Lease struct {
	mu       sync.Mutex
	held     bool
	gen      uint64
	deadline time.Time
	ttl      time.Duration
}

// NewLease creates a lease with the given time-to-live
func NewLease(ttl time.Duration) *Lease {
	return &Lease{ttl: ttl}
}

// TryAcquire attempts to take the lease. On success it returns the
// holder's generation and starts the TTL clock.
func (l *Lease) TryAcquire() (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return 0, false
	}
	l.held = true
	l.gen++
	l.deadline = time.Now().Add(l.ttl)
	return l.gen, true
}

// Extend pushes the deadline out by one TTL. It reports false when the
// caller's generation no longer holds the lease.
func (l *Lease) Extend(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held || l.gen != gen {
		return false
	}
	l.deadline = time.Now().Add(l.ttl)
	return true
}

// Expired reports whether the generation's hold has lapsed, either
// because the deadline passed or because the lease moved on
func (l *Lease) Expired(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held || l.gen != gen {
		return true
	}
	return time.Now().After(l.deadline)
}

// Release frees the lease if gen still holds it
func (l *Lease) Release(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held && l.gen == gen {
		l.held = false
	}
}
