// Package config resolves model-provider configuration for a turn.
//
// Each field (api key, provider, endpoint, deployment, model) is resolved by
// strict precedence: explicit per-call option, then process environment, then
// a remote server-settings snapshot fetched at most once per Resolver. A field
// with no value in any source fails with a *ConfigurationError naming it.
package config
