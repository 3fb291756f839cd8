// Package dispatch decides, per call, whether an outbound operation runs
// through a durability-providing execution boundary or directly. Both paths
// expose an identical result/error contract to the caller.
package dispatch

import (
	"context"

	"github.com/botrelay/botrelay/logging"
)

// Operation is a unit of outbound work (send, completion, handoff,
// bot-to-bot) executed either directly or as a durable step.
type Operation func(ctx context.Context) (any, error)

// StepExecutor is the durable-execution collaborator. RunAsStep records and
// runs the operation so it can survive restarts and be retried; it is only
// available inside a durable context.
type StepExecutor interface {
	RunAsStep(ctx context.Context, name string, op Operation) (any, error)
}

type durableKey struct{}

// WithDurableContext marks ctx as running inside a durability-providing
// boundary whose steps exec executes.
func WithDurableContext(ctx context.Context, exec StepExecutor) context.Context {
	return context.WithValue(ctx, durableKey{}, exec)
}

// FromContext returns the step executor when ctx is inside a durable boundary.
func FromContext(ctx context.Context) (StepExecutor, bool) {
	exec, ok := ctx.Value(durableKey{}).(StepExecutor)
	return exec, ok
}

// Gate routes operations through the durable boundary when one is ambient.
type Gate struct {
	logger logging.Logger
}

// NewGate creates a dispatch gate.
func NewGate(logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Gate{logger: logger}
}

// Do executes op as a durable step when ctx carries a durable boundary and
// directly otherwise. The result/error contract is identical either way.
func (g *Gate) Do(ctx context.Context, name string, op Operation) (any, error) {
	if exec, ok := FromContext(ctx); ok {
		g.logger.Debug("dispatch.step", "operation", name)
		return exec.RunAsStep(ctx, name, op)
	}
	g.logger.Debug("dispatch.direct", "operation", name)
	return op(ctx)
}
