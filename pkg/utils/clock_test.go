package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	clock := NewRealClock()
	start := clock.Now()
	assert.False(t, start.IsZero())
	assert.GreaterOrEqual(t, clock.Since(start), time.Duration(0))
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	assert.Equal(t, start, clock.Now())

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, clock.Since(start))
	assert.Equal(t, start.Add(1500*time.Millisecond), clock.Now())
}

func TestClockInterface(t *testing.T) {
	var _ Clock = &RealClock{}
	var _ Clock = &MockClock{}
}
