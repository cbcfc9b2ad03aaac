// Package resilience wraps calls to dependencies the request path should
// not wait on when they are failing.
package resilience

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	// MinRequests is how many calls an interval needs before it can trip.
	MinRequests  uint32
	FailureRatio float64
	// OpenFor is how long the breaker rejects calls before probing again.
	OpenFor time.Duration
	// Interval resets the closed-state counters.
	Interval    time.Duration
	HalfOpenMax uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:  5,
		FailureRatio: 0.6,
		OpenFor:      10 * time.Second,
		Interval:     30 * time.Second,
		HalfOpenMax:  3,
	}
}

// NewCircuitBreaker builds a breaker that logs its state changes.
func NewCircuitBreaker(name string, cfg BreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMax,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < cfg.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}
