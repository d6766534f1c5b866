package adapter

import (
	"sync"
	"time"
)

// Breaker is a three-state circuit breaker shared by all requests of one
// client.
//
//   - Closed: requests pass; each non-4xx failure increments the counter,
//     each success resets it to 0.
//   - Open: once the counter reaches the threshold, requests are rejected
//     without touching the network until the cooldown elapses.
//   - Half-Open: after the cooldown, exactly one probe is let through by
//     backing the counter off to threshold-1. The probe's success resets
//     the counter; its failure reopens the breaker for a full cooldown.
//
// 4xx responses never touch the breaker: they indicate a request defect,
// not server unavailability.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	failures  int
	openUntil time.Time
}

func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a request may proceed. While open it returns false;
// the first call after the cooldown elapses transitions to half-open and
// returns true for that single probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures >= b.threshold {
		if b.now().Before(b.openUntil) {
			return false
		}
		// Half-open: admit one probe by backing the counter off by one.
		b.failures = b.threshold - 1
	}
	return true
}

// RecordSuccess resets the consecutive-failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// RecordFailure counts a network/timeout/5xx failure and opens the breaker
// when the threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = b.now().Add(b.cooldown)
	}
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
