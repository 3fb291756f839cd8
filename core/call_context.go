package core

import (
	"context"

	"github.com/botrelay/botrelay/logging"
)

// CallContext provides a constrained surface for capability functions invoked
// during a turn. It exposes the owning thread, the correlating function call
// id and a logger, without handing out the whole orchestration state.
type CallContext struct {
	ctx            context.Context
	thread         *Thread
	functionCallID string
	logger         logging.Logger
}

// NewCallContext binds a call context to a thread and function call id.
// A nil thread is allowed for completion-mode calls without conversation.
func NewCallContext(ctx context.Context, thread *Thread, functionCallID string, logger logging.Logger) *CallContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &CallContext{ctx: ctx, thread: thread, functionCallID: functionCallID, logger: logger}
}

// Context returns the context associated with the capability invocation.
func (c *CallContext) Context() context.Context { return c.ctx }

// Thread returns the thread this turn runs on (nil in completion mode).
func (c *CallContext) Thread() *Thread { return c.thread }

// FunctionCallID returns the model-assigned id correlating request and result.
func (c *CallContext) FunctionCallID() string { return c.functionCallID }

// Logger returns the logger for this invocation.
func (c *CallContext) Logger() logging.Logger { return c.logger }

// GetState retrieves a thread state value.
func (c *CallContext) GetState(k string) (any, bool) {
	if c.thread == nil || c.thread.State == nil {
		return nil, false
	}
	v, ok := c.thread.State[k]
	return v, ok
}

// SetState records a thread state value visible to later capability calls in
// the same turn.
func (c *CallContext) SetState(k string, v any) {
	if c.thread == nil {
		return
	}
	if c.thread.State == nil {
		c.thread.State = map[string]any{}
	}
	c.thread.State[k] = v
}

// SkipResponse requests suppression of the router's own reply for this turn,
// typically because the capability already delivered output itself.
func (c *CallContext) SkipResponse() {
	if c.thread == nil {
		return
	}
	c.thread.SetSkipResponse(true)
	c.logger.Info("capability.skip_response", "thread_id", c.thread.ThreadID, "function_call_id", c.functionCallID)
}
