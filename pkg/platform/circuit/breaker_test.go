package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock steps time manually so open-timeout behavior is testable without
// sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreaker_InitialState(t *testing.T) {
	b := New("test")
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "test", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("test", WithFailureThreshold(3))

	// First two failures don't open
	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	// Third failure opens the circuit
	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b := New("test", WithFailureThreshold(1), WithSuccessThreshold(2))

	// Open the circuit
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	// First success doesn't close
	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)
	assert.True(t, b.IsOpen())

	// Second success closes
	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("test", WithFailureThreshold(3))

	// Two failures
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	// Success resets count
	b.RecordSuccess()

	// Two more failures don't open (count was reset)
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	// Third failure opens
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_FailureResetsSuccessCount(t *testing.T) {
	b := New("test", WithFailureThreshold(1), WithSuccessThreshold(3))

	// Open the circuit
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	// Two successes
	b.RecordSuccess()
	b.RecordSuccess()

	// Failure resets success count (stays open)
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	// Need 3 successes again to close
	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))

	// Open the circuit
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	// Reset closes it
	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_AllowGrantsTrialAfterOpenTimeout(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New("test",
		WithFailureThreshold(1),
		WithOpenTimeout(10*time.Second),
		WithClock(clock.now),
	)

	assert.True(t, b.Allow())

	// Open the circuit; attempts are shed until the timeout elapses
	b.RecordFailure()
	assert.False(t, b.Allow())

	clock.advance(9 * time.Second)
	assert.False(t, b.Allow())

	// Past the timeout a single trial is let through, then the wait re-arms
	clock.advance(2 * time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	// The trial succeeding closes the circuit and attempts flow again
	_, change := b.RecordSuccess()
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
}

func TestBreaker_FailedTrialReArmsTimeout(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New("test",
		WithFailureThreshold(1),
		WithOpenTimeout(10*time.Second),
		WithClock(clock.now),
	)

	b.RecordFailure()
	clock.advance(11 * time.Second)
	assert.True(t, b.Allow())

	// The trial fails: still open, and the full timeout applies again
	b.RecordFailure()
	assert.True(t, b.IsOpen())
	clock.advance(9 * time.Second)
	assert.False(t, b.Allow())
	clock.advance(2 * time.Second)
	assert.True(t, b.Allow())
}

func TestBreaker_PartialTrialSuccessAllowsNextAttempt(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New("test",
		WithFailureThreshold(1),
		WithSuccessThreshold(2),
		WithOpenTimeout(10*time.Second),
		WithClock(clock.now),
	)

	b.RecordFailure()
	clock.advance(11 * time.Second)
	assert.True(t, b.Allow())

	// First success is not enough to close, but the next trial does not
	// have to wait out the timeout
	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)
	assert.True(t, b.Allow())

	_, change = b.RecordSuccess()
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_OpenCircuitReturnsFallback(t *testing.T) {
	b := New("test", WithFailureThreshold(1))

	// Open the circuit
	b.RecordFailure()

	// Additional failures return fallback without state change
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened) // Already open, no state change
}
