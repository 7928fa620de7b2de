package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyLockSingleFlight(t *testing.T) {
	l := NewKeyLock(time.Minute)

	assert.True(t, l.TryAcquire(1))
	assert.False(t, l.TryAcquire(1), "second acquire of a held key must fail")
	assert.True(t, l.TryAcquire(2), "other keys are independent")

	l.Release(1)
	assert.True(t, l.TryAcquire(1), "released key can be reacquired")
}

func TestKeyLockExpiredHoldIsReleased(t *testing.T) {
	l := NewKeyLock(10 * time.Millisecond)

	assert.True(t, l.TryAcquire(1))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, l.TryAcquire(1), "expired hold must not block a new sync")
}

func TestKeyLockReleaseUnheldIsNoop(t *testing.T) {
	l := NewKeyLock(time.Minute)
	l.Release(42)
	assert.False(t, l.Held(42))
}
