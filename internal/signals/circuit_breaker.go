package signals

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrBreakerOpen is returned when a provider's circuit is open and the
// request was rejected without being attempted.
var ErrBreakerOpen = errors.New("signals: circuit breaker is open")

// BreakerState represents the current state of a provider circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// BreakerConfig holds circuit breaker tuning for a signal provider.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // successes to close from half-open
	OpenTimeout      time.Duration // time to wait before trying half-open
}

// DefaultBreakerConfig suits side-channel enrichment fetches: trip fast,
// recover fast, since a tripped breaker only means fallback readings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// CircuitBreaker guards one provider. A failing provider stops being polled
// for OpenTimeout, during which callers go straight to fallback data.
type CircuitBreaker struct {
	name   string
	config BreakerConfig
	logger *logrus.Logger

	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	successCount    int
	lastStateChange time.Time
}

func NewCircuitBreaker(name string, config BreakerConfig, logger *logrus.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}

	return &CircuitBreaker{
		name:            name,
		config:          config,
		logger:          logger,
		state:           BreakerClosed,
		lastStateChange: time.Now(),
	}
}

// Execute runs fn under the breaker. When the circuit is open the call is
// rejected with ErrBreakerOpen without invoking fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	cb.mu.Lock()
	if !cb.canExecute() {
		cb.mu.Unlock()
		return ErrBreakerOpen
	}
	cb.mu.Unlock()

	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure(err)
	} else {
		cb.onSuccess()
	}
	return err
}

func (cb *CircuitBreaker) canExecute() bool {
	switch cb.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if time.Since(cb.lastStateChange) > cb.config.OpenTimeout {
			cb.setState(BreakerHalfOpen)
			cb.successCount = 0
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case BreakerClosed:
		cb.failureCount = 0
	case BreakerHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.setState(BreakerClosed)
			cb.failureCount = 0
		}
	}
}

func (cb *CircuitBreaker) onFailure(err error) {
	switch cb.state {
	case BreakerClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.setState(BreakerOpen)
		}
	case BreakerHalfOpen:
		// Any failure in half-open reopens the circuit.
		cb.setState(BreakerOpen)
	}

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           cb.stateName(),
		"failure_count":   cb.failureCount,
		"error":           err.Error(),
	}).Warn("Signal provider call failed")
}

func (cb *CircuitBreaker) setState(newState BreakerState) {
	if cb.state == newState {
		return
	}
	old := cb.state
	cb.state = newState
	cb.lastStateChange = time.Now()

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"old_state":       stateName(old),
		"new_state":       cb.stateName(),
	}).Info("Circuit breaker state changed")
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) stateName() string { return stateName(cb.state) }

func stateName(s BreakerState) string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
