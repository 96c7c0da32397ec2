package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	assert.True(t, cb.AllowRequest())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.AllowRequest(), "stays closed below the threshold")
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.AllowRequest())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	// The counter restarts; two more failures must not trip the breaker.
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.AllowRequest())
}

func TestCircuitBreaker_HalfOpensAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.RecordFailure()
	assert.False(t, cb.AllowRequest())

	time.Sleep(20 * time.Millisecond)

	assert.True(t, cb.AllowRequest(), "probe allowed once the timeout elapses")
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// A failed probe reopens the circuit immediately.
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.AllowRequest())
}

func TestCircuitBreaker_SuccessfulProbeCloses(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.AllowRequest())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestPlanKeys_SeparateKeySpaces(t *testing.T) {
	id := uuid.New()

	assert.Equal(t, "cartwise:plan:"+id.String(), planKey(id))
	assert.Equal(t, "cartwise:plan:fp:abc123-g2", fingerprintKey("abc123-g2"))
}
