package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets the tests move the breaker's notion of time without
// sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	b := NewBreaker(threshold, cooldown)
	b.now = clock.Now
	return b, clock
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(5, 30*time.Second)

	// ── four failures: still closed ──
	for i := 0; i < 4; i++ {
		require.True(t, b.Allow())
		b.RecordFailure()
	}
	assert.True(t, b.Allow())

	// ── fifth failure trips it ──
	b.RecordFailure()
	assert.False(t, b.Allow())
	assert.False(t, b.Allow(), "must stay open within the cooldown")
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b, _ := newTestBreaker(5, 30*time.Second)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	assert.Zero(t, b.Failures())

	// The slate is clean: four more failures still do not trip it.
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.True(t, b.Allow())
}

func TestBreaker_HalfOpenProbeSuccess(t *testing.T) {
	b, clock := newTestBreaker(5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	require.False(t, b.Allow())

	clock.Advance(31 * time.Second)

	// One probe is admitted; its success closes the breaker fully.
	require.True(t, b.Allow())
	b.RecordSuccess()
	assert.Zero(t, b.Failures())
	assert.True(t, b.Allow())
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.Advance(31 * time.Second)
	require.True(t, b.Allow())

	// The probe fails: open again for a full cooldown.
	b.RecordFailure()
	assert.False(t, b.Allow())

	clock.Advance(29 * time.Second)
	assert.False(t, b.Allow(), "cooldown restarts after a failed probe")

	clock.Advance(2 * time.Second)
	assert.True(t, b.Allow())
}
