package config

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Environment variables consulted during resolution.
const (
	EnvAPIKey     = "LLM_API_KEY"
	EnvProvider   = "LLM_PROVIDER"
	EnvEndpoint   = "LLM_ENDPOINT"
	EnvDeployment = "LLM_DEPLOYMENT"
	EnvModel      = "LLM_MODEL"
)

// Additional-config keys recognized in remote settings.
const (
	settingDeployment = "deployment"
	settingModel      = "model"
)

// ConfigurationError reports a setting that could not be resolved from any
// source.
type ConfigurationError struct {
	Field string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: no value resolved for %q", e.Field)
}

// Settings is the remote server-settings snapshot shape.
type Settings struct {
	APIKey           string            `json:"api_key"`
	ProviderName     string            `json:"provider_name"`
	Endpoint         string            `json:"endpoint"`
	AdditionalConfig map[string]string `json:"additional_config,omitempty"`
}

// SettingsProvider fetches the remote settings snapshot.
type SettingsProvider interface {
	GetSettings(ctx context.Context) (*Settings, error)
}

// Resolved holds the provider connection values a turn runs with.
type Resolved struct {
	Provider   string
	APIKey     string
	Endpoint   string
	Deployment string
	Model      string
}

// Resolver resolves provider configuration with explicit > env > remote
// precedence. The remote snapshot is fetched lazily at most once per Resolver
// instance, never mid-resolution a second time.
type Resolver struct {
	settings SettingsProvider

	once     sync.Once
	snapshot *Settings
	fetchErr error
}

// NewResolver creates a resolver. settings may be nil when no remote source
// exists; resolution then falls through to explicit and env values only.
func NewResolver(settings SettingsProvider) *Resolver {
	return &Resolver{settings: settings}
}

// Resolve produces the effective provider connection for the given options.
// Model and deployment are each optional individually, but at least one of
// the two must resolve; endpoint is only required for providers that need it,
// which is left to the connector, so an empty endpoint is not an error here.
func (r *Resolver) Resolve(ctx context.Context, opts RouterOptions) (*Resolved, error) {
	res := &Resolved{
		Provider:   r.resolve(ctx, opts.Provider, EnvProvider, func(s *Settings) string { return s.ProviderName }),
		APIKey:     r.resolve(ctx, opts.APIKey, EnvAPIKey, func(s *Settings) string { return s.APIKey }),
		Endpoint:   r.resolve(ctx, opts.Endpoint, EnvEndpoint, func(s *Settings) string { return s.Endpoint }),
		Deployment: r.resolve(ctx, opts.Deployment, EnvDeployment, additional(settingDeployment)),
		Model:      r.resolve(ctx, opts.Model, EnvModel, additional(settingModel)),
	}

	if res.Provider == "" {
		return nil, &ConfigurationError{Field: "provider"}
	}
	if res.APIKey == "" {
		return nil, &ConfigurationError{Field: "api key"}
	}
	if res.Model == "" && res.Deployment == "" {
		return nil, &ConfigurationError{Field: "model name"}
	}
	if res.Model == "" {
		res.Model = res.Deployment
	}
	return res, nil
}

// resolve applies the precedence chain for one field: explicit option, then
// environment, then remote snapshot. First non-empty value wins.
func (r *Resolver) resolve(ctx context.Context, explicit, envKey string, fromRemote func(*Settings) string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if s := r.remote(ctx); s != nil {
		return fromRemote(s)
	}
	return ""
}

// remote returns the memoized settings snapshot, fetching it on first use.
func (r *Resolver) remote(ctx context.Context) *Settings {
	if r.settings == nil {
		return nil
	}
	r.once.Do(func() {
		r.snapshot, r.fetchErr = r.settings.GetSettings(ctx)
	})
	if r.fetchErr != nil {
		return nil
	}
	return r.snapshot
}

func additional(key string) func(*Settings) string {
	return func(s *Settings) string {
		if s.AdditionalConfig == nil {
			return ""
		}
		return s.AdditionalConfig[key]
	}
}
