// Package resilience provides a fail-fast circuit breaker for remote calls.
//
// The breaker never retries. While open it rejects calls immediately with
// ErrCircuitOpen so callers can report a retryable failure without waiting
// on a dependency that is known to be down.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/itsneelabh/agrimarket/pkg/logger"
)

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

var errPanicked = errors.New("protected call panicked")

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// StateClosed allows all requests through
	StateClosed CircuitState = iota
	// StateOpen blocks all requests
	StateOpen
	// StateHalfOpen allows limited requests for testing
	StateHalfOpen
)

// String returns the string representation of the state
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrorClassifier reports whether err should count as a failure
type ErrorClassifier func(error) bool

// DefaultErrorClassifier counts every error except client cancellation
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// Config holds configuration for the circuit breaker
type Config struct {
	// Name identifies the breaker in logs
	Name string

	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold int

	// SleepWindow is how long the breaker stays open before probing
	SleepWindow time.Duration

	// HalfOpenRequests is the number of concurrent trial calls allowed while half-open
	HalfOpenRequests int

	// ErrorClassifier determines which errors count as failures
	ErrorClassifier ErrorClassifier

	// Logger for state transitions
	Logger logger.Logger

	// OnStateChange is called after every transition
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultConfig returns a configuration suitable for a public HTTP API
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 1,
		ErrorClassifier:  DefaultErrorClassifier,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be at least 1, got %d", c.FailureThreshold)
	}
	if c.SleepWindow <= 0 {
		return fmt.Errorf("sleep window must be positive, got %s", c.SleepWindow)
	}
	return nil
}

// Metrics is a snapshot of breaker counters
type Metrics struct {
	State               string `json:"state"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	TotalExecutions     uint64 `json:"total_executions"`
	TotalFailures       uint64 `json:"total_failures"`
	Rejected            uint64 `json:"rejected"`
}

// CircuitBreaker counts consecutive failures and fails fast once they reach
// the threshold
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu             sync.Mutex
	state          CircuitState
	openedAt       time.Time
	failures       int
	halfOpenActive int
	executions     uint64
	totalFailures  uint64
	rejected       uint64
}

// NewCircuitBreaker creates a circuit breaker
func NewCircuitBreaker(config Config) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	if config.HalfOpenRequests < 1 {
		config.HalfOpenRequests = 1
	}
	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultErrorClassifier
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}
	return &CircuitBreaker{config: config, now: time.Now}, nil
}

// Execute runs fn unless the breaker is open. fn is called at most once.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	trial, ok := cb.admit()
	if !ok {
		return fmt.Errorf("%s: %w", cb.config.Name, ErrCircuitOpen)
	}

	// A panicking fn still releases its half-open slot and counts as a failure.
	done := false
	defer func() {
		if !done {
			cb.record(trial, errPanicked)
		}
	}()
	err := fn(ctx)
	done = true
	cb.record(trial, err)
	return err
}

func (cb *CircuitBreaker) admit() (trial bool, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.SleepWindow {
		cb.transition(StateHalfOpen)
	}

	switch cb.state {
	case StateClosed:
		cb.executions++
		return false, true
	case StateHalfOpen:
		if cb.halfOpenActive >= cb.config.HalfOpenRequests {
			cb.rejected++
			return false, false
		}
		cb.halfOpenActive++
		cb.executions++
		return true, true
	default:
		cb.rejected++
		return false, false
	}
}

func (cb *CircuitBreaker) record(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.halfOpenActive--
	}

	if !cb.config.ErrorClassifier(err) {
		if err == nil {
			cb.failures = 0
			if cb.state == StateHalfOpen {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.failures++
	cb.totalFailures++
	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen)
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
		}
	}
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures = 0
	}

	cb.config.Logger.Warn("circuit breaker state change",
		"name", cb.config.Name,
		"from", from.String(),
		"to", to.String(),
		"consecutive_failures", cb.failures)

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Metrics returns a snapshot of the counters
func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Metrics{
		State:               cb.state.String(),
		ConsecutiveFailures: cb.failures,
		TotalExecutions:     cb.executions,
		TotalFailures:       cb.totalFailures,
		Rejected:            cb.rejected,
	}
}

// Reset closes the breaker and clears the failure count
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
	cb.halfOpenActive = 0
}
