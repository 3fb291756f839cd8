package engine

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/botrelay/botrelay/config"
	"github.com/botrelay/botrelay/logging"
	"github.com/botrelay/botrelay/model"
	"github.com/botrelay/botrelay/model/anthropic"
	"github.com/botrelay/botrelay/model/middleware"
	"github.com/botrelay/botrelay/model/openai"
)

// Provider is the tagged set of supported model providers.
type Provider string

// Supported providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderMock      Provider = "mock"
)

// ParseProvider maps a resolved provider name onto the tagged set.
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
		return Provider(name), nil
	default:
		return "", &BuildError{Provider: name, Err: fmt.Errorf("unsupported provider")}
	}
}

// BuildError reports an engine that could not be constructed.
type BuildError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("engine build failed for provider %q: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *BuildError) Unwrap() error { return e.Err }

// BuilderOptions configures engine construction beyond the resolved provider
// connection.
type BuilderOptions struct {
	// EnableBreaker wraps the model connector in a circuit breaker.
	EnableBreaker bool
	// Logger used by built engines. Defaults to NoOpLogger.
	Logger logging.Logger
	// MockModel substitutes a model for ProviderMock (tests, demos).
	MockModel model.Model
}

// Builder wires provider connections into engines.
type Builder struct {
	opts BuilderOptions
}

// NewBuilder constructs a Builder with the given options.
func NewBuilder(optFns ...func(o *BuilderOptions)) *Builder {
	opts := BuilderOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Builder{opts: opts}
}

// Build constructs an engine for the resolved provider configuration. The
// configured http timeout and the consecutive tool-call guard are wired here.
func (b *Builder) Build(resolved *config.Resolved, routerOpts config.RouterOptions) (*Engine, error) {
	provider, err := ParseProvider(resolved.Provider)
	if err != nil {
		return nil, err
	}

	var m model.Model
	switch provider {
	case ProviderOpenAI:
		m = openai.NewModel(func(o *openai.Options) {
			o.Model = resolved.Model
			o.APIKey = resolved.APIKey
			o.BaseURL = resolved.Endpoint
			o.HTTPTimeout = routerOpts.HTTPTimeout
		})
	case ProviderAnthropic:
		m = anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(resolved.Model)
			o.APIKey = resolved.APIKey
			o.BaseURL = resolved.Endpoint
			o.HTTPTimeout = routerOpts.HTTPTimeout
		})
	case ProviderMock:
		if b.opts.MockModel == nil {
			return nil, &BuildError{Provider: resolved.Provider, Err: fmt.Errorf("no mock model configured")}
		}
		m = b.opts.MockModel
	}

	if b.opts.EnableBreaker {
		m = middleware.NewCircuitBreakerModel(m, func(o *middleware.BreakerOptions) {
			o.Logger = b.opts.Logger
		})
	}

	return New(m, routerOpts.MaxConsecutiveCalls, b.opts.Logger), nil
}
