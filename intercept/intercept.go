// Package intercept runs optional pre/post hooks around a routed turn. Hook
// failures (returned errors and panics alike) are logged and absorbed; a
// broken interceptor must never break a conversation.
package intercept

import (
	"context"

	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/logging"
)

// Interceptor observes and optionally rewrites a turn. Either hook may return
// its input unchanged.
type Interceptor interface {
	// InterceptIncoming runs before history assembly and model invocation.
	InterceptIncoming(ctx context.Context, thread *core.Thread) (*core.Thread, error)

	// InterceptOutgoing runs after model invocation with the produced reply.
	InterceptOutgoing(ctx context.Context, thread *core.Thread, response string) (string, error)
}

// Funcs adapts two plain functions to the Interceptor interface. Either may
// be nil.
type Funcs struct {
	Incoming func(ctx context.Context, thread *core.Thread) (*core.Thread, error)
	Outgoing func(ctx context.Context, thread *core.Thread, response string) (string, error)
}

// InterceptIncoming implements Interceptor.
func (f Funcs) InterceptIncoming(ctx context.Context, thread *core.Thread) (*core.Thread, error) {
	if f.Incoming == nil {
		return thread, nil
	}
	return f.Incoming(ctx, thread)
}

// InterceptOutgoing implements Interceptor.
func (f Funcs) InterceptOutgoing(ctx context.Context, thread *core.Thread, response string) (string, error) {
	if f.Outgoing == nil {
		return response, nil
	}
	return f.Outgoing(ctx, thread, response)
}

// Chain runs interceptors sequentially with failure isolation.
type Chain struct {
	interceptors []Interceptor
	logger       logging.Logger
}

// NewChain builds a chain; nil interceptors are skipped.
func NewChain(logger logging.Logger, interceptors ...Interceptor) *Chain {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	var kept []Interceptor
	for _, i := range interceptors {
		if i != nil {
			kept = append(kept, i)
		}
	}
	return &Chain{interceptors: kept, logger: logger}
}

// Incoming applies every incoming hook in order. A hook that errors or panics
// is logged and its input value carried forward unchanged.
func (c *Chain) Incoming(ctx context.Context, thread *core.Thread) *core.Thread {
	for _, i := range c.interceptors {
		result, err := c.safeIncoming(ctx, i, thread)
		if err != nil {
			c.logger.Error("intercept.incoming.failed", "error", err.Error())
			continue
		}
		if result != nil {
			thread = result
		}
	}
	return thread
}

// Outgoing applies every outgoing hook in order with the same isolation.
func (c *Chain) Outgoing(ctx context.Context, thread *core.Thread, response string) string {
	for _, i := range c.interceptors {
		result, err := c.safeOutgoing(ctx, i, thread, response)
		if err != nil {
			c.logger.Error("intercept.outgoing.failed", "error", err.Error())
			continue
		}
		response = result
	}
	return response
}

func (c *Chain) safeIncoming(ctx context.Context, i Interceptor, thread *core.Thread) (result *core.Thread, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, panicError(r)
		}
	}()
	return i.InterceptIncoming(ctx, thread)
}

func (c *Chain) safeOutgoing(ctx context.Context, i Interceptor, thread *core.Thread, response string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = response, panicError(r)
		}
	}()
	return i.InterceptOutgoing(ctx, thread, response)
}
