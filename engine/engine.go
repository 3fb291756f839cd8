package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/botrelay/botrelay/capability"
	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/logging"
	"github.com/botrelay/botrelay/model"
)

// AskOptions carries the per-call generation knobs.
type AskOptions struct {
	Temperature float64
	MaxTokens   int64
}

// Engine is a built completion engine: a model connection plus the capability
// functions currently exposed to it. Safe for concurrent use; the function
// registries are guarded by one mutex.
type Engine struct {
	model          model.Model
	maxConsecutive int
	logger         logging.Logger

	mu         sync.Mutex
	shared     map[string]capability.Capability            // function name -> shared function
	sharedSeen map[string]bool                             // shared names already registered
	instance   map[string]map[string]capability.Capability // descriptor name -> function name -> function
}

// New constructs an engine around a model. maxConsecutive bounds automatic
// tool-call iterations per Ask (0 = unlimited).
func New(m model.Model, maxConsecutive int, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Engine{
		model:          m,
		maxConsecutive: maxConsecutive,
		logger:         logger,
		shared:         map[string]capability.Capability{},
		sharedSeen:     map[string]bool{},
		instance:       map[string]map[string]capability.Capability{},
	}
}

// Model returns the underlying model.
func (e *Engine) Model() model.Model { return e.model }

// RegisterShared attaches shared functions, skipping names registered before.
// Called on every turn but effective only once per function name, so a cached
// engine never accumulates duplicates.
func (e *Engine) RegisterShared(fns ...capability.Capability) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, fn := range fns {
		if e.sharedSeen[fn.Name()] {
			continue
		}
		e.shared[fn.Name()] = fn
		e.sharedSeen[fn.Name()] = true
	}
}

// SharedRegistered reports whether a shared function name is already attached.
func (e *Engine) SharedRegistered(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sharedSeen[name]
}

// BindInstance replaces the thread-bound functions registered under a
// descriptor name. The previous turn's bindings for that descriptor are
// discarded wholesale; functions are never duplicated.
func (e *Engine) BindInstance(descriptor string, fns []capability.Capability) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bound := make(map[string]capability.Capability, len(fns))
	for _, fn := range fns {
		bound[fn.Name()] = fn
	}
	e.instance[descriptor] = bound
}

// snapshot returns the current tool definitions and a name -> function lookup.
func (e *Engine) snapshot() ([]model.ToolDefinition, map[string]capability.Capability) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lookup := make(map[string]capability.Capability, len(e.shared))
	for name, fn := range e.shared {
		lookup[name] = fn
	}
	for _, fns := range e.instance {
		for name, fn := range fns {
			lookup[name] = fn
		}
	}

	defs := make([]model.ToolDefinition, 0, len(lookup))
	for _, fn := range lookup {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        fn.Name(),
				Description: fn.Description(),
				Parameters:  fn.Parameters(),
			},
		})
	}
	return defs, lookup
}

// Ask runs the completion loop: call the model, execute any requested
// capability functions, feed results back, repeat until the model produces
// final text or the consecutive-call guard trips.
func (e *Engine) Ask(ctx context.Context, instructions string, history []core.ChatMessage, thread *core.Thread, opts AskOptions) (string, error) {
	defs, lookup := e.snapshot()

	messages := make([]model.Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, model.Message{Role: msg.Role, Text: msg.Text})
	}

	limiter := core.NewCallLimiter(e.maxConsecutive)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		req := model.Request{
			Instructions: instructions,
			Messages:     messages,
			Temperature:  opts.Temperature,
			MaxTokens:    opts.MaxTokens,
		}
		if len(defs) > 0 {
			req.Tools = defs
		}

		start := time.Now()
		resp, err := e.model.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		e.logger.Debug("engine.model.answered",
			"provider", e.model.Info().Provider,
			"duration_ms", time.Since(start).Milliseconds(),
			"tool_calls", len(resp.ToolCalls),
		)

		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}

		if err := limiter.Increment(); err != nil {
			return "", fmt.Errorf("tool loop terminated: %w", err)
		}

		messages = append(messages, model.Message{
			Role:      core.RoleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result := e.executeCall(ctx, lookup, thread, tc)
			messages = append(messages, model.Message{
				Role:       core.RoleTool,
				Text:       result,
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
			})
		}
	}
}

// executeCall runs one requested function with panic safety and returns the
// serialized result (or an error string the model can react to).
func (e *Engine) executeCall(ctx context.Context, lookup map[string]capability.Capability, thread *core.Thread, tc model.ToolCall) string {
	fn, ok := lookup[tc.Function.Name]
	if !ok {
		e.logger.Warn("engine.function.unknown", "function", tc.Function.Name)
		return fmt.Sprintf("error: unknown function %q", tc.Function.Name)
	}

	args := map[string]any{}
	if len(tc.Function.Arguments) > 0 {
		if err := json.Unmarshal(tc.Function.Arguments, &args); err != nil {
			e.logger.Warn("engine.function.bad_arguments", "function", tc.Function.Name, "error", err.Error())
			return fmt.Sprintf("error: invalid arguments: %v", err)
		}
	}

	callCtx := core.NewCallContext(ctx, thread, tc.ID, e.logger)

	var (
		result any
		err    error
	)
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in function %s: %v", tc.Function.Name, r)
				e.logger.Error("engine.function.panic", "function", tc.Function.Name, "recover", r)
			}
		}()
		result, err = fn.Call(callCtx, args)
	}()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}

	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, mErr := json.Marshal(v)
		if mErr != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
