// Package botrelay provides a high-level façade over the router, engine cache
// and agent-to-agent services, enabling rapid construction of conversational
// agent backends. Most applications interact with this package by:
//  1. Creating a Relay via New() (optionally overriding the message store,
//     settings provider, transport, or logger)
//  2. Registering capability descriptors per agent
//  3. Routing inbound messages (Route), running bare completions (Complete),
//     and transferring conversations (Handoff, BotToBot)
//
// The façade delegates orchestration to router.Router while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable message store, a
// real outbound transport and a structured logger.
package botrelay

import (
	"context"

	"github.com/botrelay/botrelay/a2a"
	"github.com/botrelay/botrelay/capability"
	"github.com/botrelay/botrelay/config"
	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/history"
	"github.com/botrelay/botrelay/intercept"
	"github.com/botrelay/botrelay/logging"
	"github.com/botrelay/botrelay/model"
	"github.com/botrelay/botrelay/router"
	"github.com/botrelay/botrelay/store"
)

// Options configures the Relay instance.
type Options struct {
	// Store persists conversation history (defaults to in-memory).
	Store core.MessageStore
	// Settings is the remote settings provider; nil disables the remote
	// fallback during configuration resolution.
	Settings config.SettingsProvider
	// Transport delivers handoff / bot-to-bot envelopes; nil disables a2a
	// operations.
	Transport a2a.Transport
	// Defaults are the baseline RouterOptions for every call.
	Defaults config.RouterOptions
	// CacheSize bounds the engine cache.
	CacheSize int
	// EnableBreaker wraps model connectors in a circuit breaker.
	EnableBreaker bool
	// MockModel substitutes the model for the "mock" provider.
	MockModel model.Model
	// Summarizer enables summarizing history reduction.
	Summarizer history.Summarizer
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Relay is the high-level façade aggregating the router and a2a services.
type Relay struct {
	opts   Options
	router *router.Router
	a2a    *a2a.Service
}

// New creates a new Relay instance with optional overrides. Any unset service
// is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Relay, error) {
	opts := Options{
		Store:    store.NewInMemoryStore(),
		Defaults: config.DefaultRouterOptions(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	r, err := router.New(func(o *router.Options) {
		o.Settings = opts.Settings
		o.Store = opts.Store
		o.Defaults = opts.Defaults
		o.CacheSize = opts.CacheSize
		o.EnableBreaker = opts.EnableBreaker
		o.MockModel = opts.MockModel
		o.Summarizer = opts.Summarizer
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	var svc *a2a.Service
	if opts.Transport != nil {
		svc = a2a.NewService(opts.Transport, r.Gate(), opts.Logger)
	}

	return &Relay{opts: opts, router: r, a2a: svc}, nil
}

// Route runs one orchestrated turn for an inbound message.
func (r *Relay) Route(
	ctx context.Context,
	thread *core.Thread,
	systemPrompt string,
	opts config.RouterOptions,
	caps *capability.Registry,
	interceptors ...intercept.Interceptor,
) (core.Outcome, error) {
	return r.router.Route(ctx, thread, systemPrompt, opts, caps, interceptors...)
}

// Complete runs a bare completion without thread, capabilities or history.
func (r *Relay) Complete(ctx context.Context, prompt, systemInstruction string, opts config.RouterOptions) (string, error) {
	return r.router.Complete(ctx, prompt, systemInstruction, opts)
}

// Handoff transfers a thread to another agent.
func (r *Relay) Handoff(ctx context.Context, env *a2a.HandoffEnvelope) error {
	if r.a2a == nil {
		return errNoTransport
	}
	return r.a2a.Handoff(ctx, env)
}

// BotToBot runs a synchronous agent-to-agent exchange.
func (r *Relay) BotToBot(ctx context.Context, env *a2a.BotToBotEnvelope, timeoutSeconds int) (*a2a.BotToBotResponse, error) {
	if r.a2a == nil {
		return nil, errNoTransport
	}
	return r.a2a.BotToBot(ctx, env, timeoutSeconds)
}

// A2A exposes the agent-to-agent service (nil without a transport), e.g. for
// wiring inbound response correlation.
func (r *Relay) A2A() *a2a.Service { return r.a2a }
