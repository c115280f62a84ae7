package client

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"aws-gateway/internal/config"
	"aws-gateway/internal/metrics"
)

// ErrCircuitOpen is returned when the backend breaker refuses a request.
var ErrCircuitOpen = errors.New("backend circuit breaker is open")

// errServerStatus marks a 5xx answer as a breaker failure. The response
// itself is still handed back to the caller.
var errServerStatus = errors.New("backend answered with a server error")

// newBreaker builds the breaker guarding backend calls, or nil when disabled.
func newBreaker(cfg config.CircuitBreakerConfig, logger *slog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	threshold := uint32(max(cfg.Threshold, 1)) //nolint:gosec // validated non-negative
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: threshold,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			if m != nil {
				m.BreakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
			}
		},
	})
}

// breakerError translates gobreaker's rejections into ErrCircuitOpen.
func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}
