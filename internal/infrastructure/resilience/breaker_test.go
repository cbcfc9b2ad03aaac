package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCircuitBreaker_TripsAndRecovers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := BreakerConfig{MinRequests: 3, FailureRatio: 0.5, OpenFor: 50 * time.Millisecond, Interval: time.Minute, HalfOpenMax: 1}
	cb := NewCircuitBreaker("audit", cfg, zap.New(core))

	boom := errors.New("db down")
	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (any, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	_, err := cb.Execute(func() (any, error) { called = true; return nil, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called, "open breaker must not call through")

	assert.Eventually(t, func() bool { return cb.State() == gobreaker.StateHalfOpen }, time.Second, 10*time.Millisecond)
	_, err = cb.Execute(func() (any, error) { return nil, nil })
	assert.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	assert.GreaterOrEqual(t, logs.FilterMessage("circuit breaker state changed").Len(), 2)
}

func TestCircuitBreaker_NeedsMinimumRequests(t *testing.T) {
	cb := NewCircuitBreaker("audit", DefaultBreakerConfig(), nil)
	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (any, error) { return nil, errors.New("x") })
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
