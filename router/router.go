// Package router composes the completion engine, history assembly, reduction
// and the interceptor chain into one orchestrated turn per inbound message.
package router

import (
	"context"

	"github.com/botrelay/botrelay/capability"
	"github.com/botrelay/botrelay/config"
	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/dispatch"
	"github.com/botrelay/botrelay/engine"
	"github.com/botrelay/botrelay/history"
	"github.com/botrelay/botrelay/intercept"
	"github.com/botrelay/botrelay/logging"
	"github.com/botrelay/botrelay/model"
)

// Options configures a Router instance.
type Options struct {
	// Settings is the remote settings collaborator; may be nil.
	Settings config.SettingsProvider
	// Store is the message store used for history assembly.
	Store core.MessageStore
	// Defaults are the baseline RouterOptions; per-call options override them
	// field by field.
	Defaults config.RouterOptions
	// CacheSize bounds the engine cache (engine.DefaultCacheSize if 0).
	CacheSize int
	// EnableBreaker wraps model connectors in a circuit breaker.
	EnableBreaker bool
	// MockModel substitutes the model for the "mock" provider (tests, demos).
	MockModel model.Model
	// Summarizer enables summarizing reduction; nil means truncate-only.
	Summarizer history.Summarizer
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Router is the per-turn orchestration state machine: resolve configuration,
// get or build the cached engine, attach capabilities, run interceptors,
// assemble and reduce history, invoke the model, and decide between a textual
// reply and suppression.
type Router struct {
	resolver  *config.Resolver
	cache     *engine.Cache
	builder   *engine.Builder
	assembler *history.Assembler
	reducer   *history.Reducer
	gate      *dispatch.Gate
	defaults  config.RouterOptions
	logger    logging.Logger
}

// New creates a Router.
func New(optFns ...func(o *Options)) (*Router, error) {
	opts := Options{
		Defaults: config.DefaultRouterOptions(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	cache, err := engine.NewCache(opts.CacheSize, opts.Logger)
	if err != nil {
		return nil, err
	}

	builder := engine.NewBuilder(func(o *engine.BuilderOptions) {
		o.EnableBreaker = opts.EnableBreaker
		o.Logger = opts.Logger
		o.MockModel = opts.MockModel
	})

	reducer := history.NewReducer(func(o *history.ReducerOptions) {
		o.Summarizer = opts.Summarizer
		o.Logger = opts.Logger
	})

	return &Router{
		resolver:  config.NewResolver(opts.Settings),
		cache:     cache,
		builder:   builder,
		assembler: history.NewAssembler(opts.Store, opts.Logger),
		reducer:   reducer,
		gate:      dispatch.NewGate(opts.Logger),
		defaults:  opts.Defaults,
		logger:    opts.Logger,
	}, nil
}

// Gate exposes the dispatch gate so collaborating services (a2a) share the
// same durable-step decision.
func (r *Router) Gate() *dispatch.Gate { return r.gate }

// Route runs one turn for an inbound message on a thread.
//
// Steps, in order: resolve configuration (fail fast), get or create the
// cached engine and attach capability functions, incoming interceptors,
// history assembly and reduction, model invocation with tool calling bounded
// by the consecutive-call guard, outgoing interceptors, skip check. Only
// interceptor failures are silently recovered; everything else is surfaced.
func (r *Router) Route(
	ctx context.Context,
	thread *core.Thread,
	systemPrompt string,
	opts config.RouterOptions,
	caps *capability.Registry,
	interceptors ...intercept.Interceptor,
) (core.Outcome, error) {
	opts = mergeOptions(r.defaults, opts)

	// RESOLVE
	resolved, err := r.resolver.Resolve(ctx, opts)
	if err != nil {
		return core.Outcome{}, err
	}

	// ENGINE
	eng, err := r.engineFor(thread, resolved, opts)
	if err != nil {
		return core.Outcome{}, err
	}
	if caps != nil {
		eng.RegisterShared(caps.Shared()...)
		bound, err := caps.BindInstances(thread)
		if err != nil {
			return core.Outcome{}, err
		}
		for name, fns := range bound {
			eng.BindInstance(name, fns)
		}
	}

	// INTERCEPT-IN
	chain := intercept.NewChain(r.logger, interceptors...)
	thread = chain.Incoming(ctx, thread)

	// HISTORY
	msgs, err := r.assembler.Assemble(thread, systemPrompt, opts.HistorySize)
	if err != nil {
		return core.Outcome{}, err
	}
	msgs, err = r.reducer.Reduce(ctx, msgs, opts.TokenLimit)
	if err != nil {
		return core.Outcome{}, err
	}

	instructions, turns := splitSystem(msgs)
	turns = append(turns, core.ChatMessage{
		Role: core.RoleUser,
		Text: thread.Message.Text,
		Data: thread.Message.Data,
	})

	// INVOKE
	askOpts := engine.AskOptions{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens}
	result, err := r.gate.Do(ctx, "completion", func(ctx context.Context) (any, error) {
		return eng.Ask(ctx, instructions, turns, thread, askOpts)
	})
	if err != nil {
		return core.Outcome{}, err
	}
	text, _ := result.(string)

	// INTERCEPT-OUT
	text = chain.Outgoing(ctx, thread, text)

	// SKIP-CHECK
	if thread.ConsumeSkipResponse() {
		r.logger.Info("router.turn.suppressed", "thread_id", thread.ThreadID)
		return core.SuppressedOutcome(), nil
	}

	r.logger.Info("router.turn.answered", "thread_id", thread.ThreadID, "agent", thread.AgentName)
	return core.TextOutcome(text), nil
}

// Complete runs a bare completion: no thread, no capabilities, no history.
// The engine cache is bypassed (empty key) so ad hoc calls never pollute
// agent-scoped entries.
func (r *Router) Complete(ctx context.Context, prompt, systemInstruction string, opts config.RouterOptions) (string, error) {
	opts = mergeOptions(r.defaults, opts)

	resolved, err := r.resolver.Resolve(ctx, opts)
	if err != nil {
		return "", err
	}

	eng, err := r.cache.GetOrCreate("", func() (*engine.Engine, error) {
		return r.builder.Build(resolved, opts)
	})
	if err != nil {
		return "", err
	}

	turns := []core.ChatMessage{{Role: core.RoleUser, Text: prompt}}
	askOpts := engine.AskOptions{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens}
	result, err := r.gate.Do(ctx, "completion", func(ctx context.Context) (any, error) {
		return eng.Ask(ctx, systemInstruction, turns, nil, askOpts)
	})
	if err != nil {
		return "", err
	}
	text, _ := result.(string)
	return text, nil
}

// engineFor returns the cached engine for the thread's agent/workflow type,
// building it on miss.
func (r *Router) engineFor(thread *core.Thread, resolved *config.Resolved, opts config.RouterOptions) (*engine.Engine, error) {
	key := thread.WorkflowType
	if key == "" {
		key = thread.AgentName
	}
	return r.cache.GetOrCreate(key, func() (*engine.Engine, error) {
		return r.builder.Build(resolved, opts)
	})
}

// splitSystem separates the leading system prompt from the conversational
// turns.
func splitSystem(msgs []core.ChatMessage) (string, []core.ChatMessage) {
	if len(msgs) > 0 && msgs[0].Role == core.RoleSystem {
		return msgs[0].Text, append([]core.ChatMessage(nil), msgs[1:]...)
	}
	return "", append([]core.ChatMessage(nil), msgs...)
}

// mergeOptions overlays non-zero per-call fields on the defaults.
func mergeOptions(defaults, overrides config.RouterOptions) config.RouterOptions {
	merged := defaults
	if overrides.Provider != "" {
		merged.Provider = overrides.Provider
	}
	if overrides.APIKey != "" {
		merged.APIKey = overrides.APIKey
	}
	if overrides.Endpoint != "" {
		merged.Endpoint = overrides.Endpoint
	}
	if overrides.Deployment != "" {
		merged.Deployment = overrides.Deployment
	}
	if overrides.Model != "" {
		merged.Model = overrides.Model
	}
	if overrides.Temperature != 0 {
		merged.Temperature = overrides.Temperature
	}
	if overrides.MaxTokens != 0 {
		merged.MaxTokens = overrides.MaxTokens
	}
	if overrides.HistorySize != 0 {
		merged.HistorySize = overrides.HistorySize
	}
	if overrides.TokenLimit != 0 {
		merged.TokenLimit = overrides.TokenLimit
	}
	if overrides.HTTPTimeout != 0 {
		merged.HTTPTimeout = overrides.HTTPTimeout
	}
	if overrides.MaxConsecutiveCalls != 0 {
		merged.MaxConsecutiveCalls = overrides.MaxConsecutiveCalls
	}
	return merged
}
