package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensExactlyAtThreshold(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	b.RecordFailure("boom")
	assert.Equal(t, StateClosed, b.State())
	b.RecordFailure("boom")
	assert.Equal(t, StateClosed, b.State())
	b.RecordFailure("boom")
	assert.Equal(t, StateOpen, b.State())
}

func TestCircuitBreaker_RecordFailureReportsTrip(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	assert.False(t, b.RecordFailure("boom"))
	assert.False(t, b.RecordFailure("boom"))
	// The failure that opens the breaker is the only one reported as a trip
	assert.True(t, b.RecordFailure("boom"))
	assert.False(t, b.RecordFailure("boom"))
}

func TestCircuitBreaker_FailedProbeReportsTrip(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)

	assert.True(t, b.RecordFailure("boom"))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())

	assert.True(t, b.RecordFailure("probe failed"))
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	b.RecordFailure("boom")
	b.RecordFailure("boom")
	b.RecordSuccess()
	b.RecordFailure("boom")
	b.RecordFailure("boom")

	assert.Equal(t, StateClosed, b.State())
}

func TestCircuitBreaker_OpenBlocksUntilCooldown(t *testing.T) {
	b := NewCircuitBreaker(1, 50*time.Millisecond)

	b.RecordFailure("boom")
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	time.Sleep(60 * time.Millisecond)

	// Cooldown elapsed: a single half-open probe is admitted
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)

	b.RecordFailure("boom")
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())

	b.RecordSuccess()

	assert.Equal(t, StateClosed, b.State())
	snap := b.Snapshot()
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Empty(t, snap.LastError)
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(3, 10*time.Millisecond)

	b.RecordFailure("boom")
	b.RecordFailure("boom")
	b.RecordFailure("boom")
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())

	// A single probe failure re-opens regardless of threshold
	b.RecordFailure("still broken")

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestCircuitBreaker_SnapshotSuccessRate(t *testing.T) {
	b := NewCircuitBreaker(5, time.Minute)

	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure("boom")

	snap := b.Snapshot()
	assert.InDelta(t, 0.75, snap.SuccessRate, 0.001)
	assert.Equal(t, "boom", snap.LastError)
}
