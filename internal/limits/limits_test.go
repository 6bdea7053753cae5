package limits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMonitoringLimits(t *testing.T) {
	l := DefaultMonitoringLimits()

	assert.Equal(t, 200, l.MaxRecentEvents)
	assert.Equal(t, 24*time.Hour, l.MaxEventAge)
}

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter(nil)
	require.NotNil(t, limiter)
	require.NotNil(t, limiter.GetLimits())

	custom := &MonitoringLimits{
		MaxRecentEvents: 100,
		MaxEventAge:     12 * time.Hour,
	}
	limiter = NewLimiter(custom)
	assert.Equal(t, custom.MaxRecentEvents, limiter.GetLimits().MaxRecentEvents)
}

func TestLimiter_UpdateLimits(t *testing.T) {
	limiter := NewLimiter(nil)

	valid := &MonitoringLimits{
		MaxRecentEvents: 25,
		MaxEventAge:     48 * time.Hour,
	}
	require.NoError(t, limiter.UpdateLimits(valid))
	assert.Equal(t, valid.MaxRecentEvents, limiter.GetLimits().MaxRecentEvents)

	invalid := &MonitoringLimits{MaxRecentEvents: -1, MaxEventAge: time.Hour}
	err := limiter.UpdateLimits(invalid)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MaxRecentEvents must be positive")
}

func TestLimiter_ShouldEvict(t *testing.T) {
	limiter := NewLimiter(nil)

	now := time.Now().Unix()
	old := now - int64(25*time.Hour/time.Second)

	assert.False(t, limiter.ShouldEvict(now))
	assert.True(t, limiter.ShouldEvict(old))
}

func TestLimiter_Validate(t *testing.T) {
	limiter := NewLimiter(nil)
	assert.NoError(t, limiter.Validate())

	limiter = NewLimiter(&MonitoringLimits{
		MaxRecentEvents: 2000,
		MaxEventAge:     24 * time.Hour,
	})
	err := limiter.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MaxRecentEvents too large")
}

func TestLimiter_EstimateMemoryBytes(t *testing.T) {
	limiter := NewLimiter(nil)
	assert.Greater(t, limiter.EstimateMemoryBytes(), int64(1000))
}

func TestTrimEvents(t *testing.T) {
	events := make([]int, 100)
	for i := range events {
		events[i] = i
	}
	trimmed := TrimEvents(events, 50)
	assert.Len(t, trimmed, 50)
	assert.Equal(t, 99, trimmed[len(trimmed)-1])
}

func TestTrimToLimit(t *testing.T) {
	limiter := NewLimiter(&MonitoringLimits{MaxRecentEvents: 10, MaxEventAge: time.Hour})
	events := make([]int, 30)
	for i := range events {
		events[i] = i
	}
	trimmed := TrimToLimit(limiter, events)
	assert.Len(t, trimmed, 10)
	assert.Equal(t, 29, trimmed[len(trimmed)-1])
}
