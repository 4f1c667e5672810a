package retention

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the scoring circuit breaker is open and
// rejects calls to prevent hammering a failing reasoning service.
var ErrCircuitOpen = errors.New("scoring circuit breaker is open")

// BreakerConfig holds the configuration for the scoring circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit. Default: 3.
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning
	// to half-open. Default: 30 seconds.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of consecutive successes required
	// in half-open state to close the circuit again. Default: 2.
	HalfOpenMaxSuccesses uint32
}

// scoringBreaker wraps gobreaker around reasoning-service calls.
//
// While the circuit is open every scoring batch degrades to the heuristic
// fallback immediately instead of waiting out a network timeout per batch.
type scoringBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

func newScoringBreaker(cfg BreakerConfig) *scoringBreaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxSuccesses == 0 {
		cfg.HalfOpenMaxSuccesses = 2
	}

	settings := gobreaker.Settings{
		Name:        "RetentionScoring",
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}

	return &scoringBreaker{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// execute runs fn through the circuit breaker, honoring ctx cancellation.
func (b *scoringBreaker) execute(ctx context.Context, fn func() (string, error)) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrCircuitOpen
		}
		return "", err
	}

	return result.(string), nil
}

// state returns the current breaker state: "closed", "open", or "half-open".
func (b *scoringBreaker) state() string {
	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
