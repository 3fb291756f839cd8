// Package middleware provides cross-cutting wrappers around model.Model.
package middleware

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/botrelay/botrelay/logging"
	"github.com/botrelay/botrelay/model"
)

// Default circuit breaker settings.
const (
	defaultMaxFailures uint32        = 5
	defaultOpenTimeout time.Duration = 30 * time.Second
	defaultInterval    time.Duration = 60 * time.Second
)

// BreakerOptions configures the circuit breaker behavior.
type BreakerOptions struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before transitioning to half-open.
	OpenTimeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure
	// counts. If 0, failures never reset until the circuit opens.
	Interval time.Duration
	// Logger receives state change notifications.
	Logger logging.Logger
}

// CircuitBreakerModel wraps a model.Model with circuit breaker protection.
// When the wrapped provider fails repeatedly, the circuit opens and subsequent
// calls fail fast without reaching the provider, preventing retry storms.
type CircuitBreakerModel struct {
	inner   model.Model
	breaker *gobreaker.CircuitBreaker[*model.Response]
	logger  logging.Logger
}

// NewCircuitBreakerModel wraps inner with a circuit breaker. Zero-valued
// options fall back to defaults.
func NewCircuitBreakerModel(inner model.Model, optFns ...func(o *BreakerOptions)) *CircuitBreakerModel {
	opts := BreakerOptions{
		MaxFailures: defaultMaxFailures,
		OpenTimeout: defaultOpenTimeout,
		Interval:    defaultInterval,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	cb := gobreaker.NewCircuitBreaker[*model.Response](gobreaker.Settings{
		Name:        "model:" + inner.Info().Provider,
		MaxRequests: 1, // allow one probe in half-open state
		Interval:    opts.Interval,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("model.breaker.state_change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &CircuitBreakerModel{inner: inner, breaker: cb, logger: logger}
}

// Generate implements model.Model, failing fast while the circuit is open.
func (m *CircuitBreakerModel) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	resp, err := m.breaker.Execute(func() (*model.Response, error) {
		return m.inner.Generate(ctx, req)
	})
	if err != nil {
		if _, ok := err.(*model.InvocationError); ok {
			return nil, err
		}
		return nil, &model.InvocationError{Provider: m.inner.Info().Provider, Err: err}
	}
	return resp, nil
}

// Info implements model.Model.
func (m *CircuitBreakerModel) Info() model.Info { return m.inner.Info() }
