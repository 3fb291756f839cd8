package config

import (
	"context"
	"errors"
	"testing"
)

type fakeSettings struct {
	settings *Settings
	err      error
	calls    int
}

func (f *fakeSettings) GetSettings(context.Context) (*Settings, error) {
	f.calls++
	return f.settings, f.err
}

func TestResolver_ExplicitWins(t *testing.T) {
	t.Setenv(EnvProvider, "anthropic")
	remote := &fakeSettings{settings: &Settings{ProviderName: "remote-provider", APIKey: "remote-key"}}
	r := NewResolver(remote)

	resolved, err := r.Resolve(context.Background(), RouterOptions{
		Provider: "openai",
		APIKey:   "explicit-key",
		Model:    "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Provider != "openai" {
		t.Fatalf("expected explicit provider to win, got %q", resolved.Provider)
	}
	if resolved.APIKey != "explicit-key" {
		t.Fatalf("expected explicit api key to win, got %q", resolved.APIKey)
	}
}

func TestResolver_EnvBeatsRemote(t *testing.T) {
	t.Setenv(EnvProvider, "openai")
	remote := &fakeSettings{settings: &Settings{ProviderName: "remote-provider", APIKey: "remote-key"}}
	r := NewResolver(remote)

	resolved, err := r.Resolve(context.Background(), RouterOptions{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Provider != "openai" {
		t.Fatalf("expected env provider, got %q", resolved.Provider)
	}
	if resolved.APIKey != "remote-key" {
		t.Fatalf("expected remote api key fallback, got %q", resolved.APIKey)
	}
}

func TestResolver_EnvProviderScenario(t *testing.T) {
	// Option unset, env LLM_PROVIDER=openai, no remote settings.
	t.Setenv(EnvProvider, "openai")
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvModel, "gpt-4o-mini")
	r := NewResolver(nil)

	resolved, err := r.Resolve(context.Background(), RouterOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Provider != "openai" {
		t.Fatalf("expected provider openai, got %q", resolved.Provider)
	}
}

func TestResolver_MissingFieldError(t *testing.T) {
	t.Setenv(EnvModel, "")
	t.Setenv(EnvDeployment, "")
	r := NewResolver(nil)

	_, err := r.Resolve(context.Background(), RouterOptions{Provider: "openai", APIKey: "k"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "model name" {
		t.Fatalf("expected missing model name, got %q", cfgErr.Field)
	}
}

func TestResolver_MissingProviderNamesField(t *testing.T) {
	t.Setenv(EnvProvider, "")
	r := NewResolver(nil)

	_, err := r.Resolve(context.Background(), RouterOptions{APIKey: "k", Model: "m"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "provider" {
		t.Fatalf("expected missing provider, got %q", cfgErr.Field)
	}
}

func TestResolver_RemoteFetchedOnce(t *testing.T) {
	for _, env := range []string{EnvProvider, EnvAPIKey, EnvEndpoint, EnvModel, EnvDeployment} {
		t.Setenv(env, "")
	}
	remote := &fakeSettings{settings: &Settings{
		ProviderName: "openai",
		APIKey:       "remote-key",
		Endpoint:     "https://remote.example",
		AdditionalConfig: map[string]string{
			"model":      "gpt-4o",
			"deployment": "prod",
		},
	}}
	r := NewResolver(remote)

	resolved, err := r.Resolve(context.Background(), RouterOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Model != "gpt-4o" || resolved.Deployment != "prod" || resolved.Endpoint != "https://remote.example" {
		t.Fatalf("unexpected resolution: %+v", resolved)
	}
	if _, err := r.Resolve(context.Background(), RouterOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.calls != 1 {
		t.Fatalf("expected one remote fetch, got %d", remote.calls)
	}
}

func TestResolver_DeploymentFallsBackToModel(t *testing.T) {
	t.Setenv(EnvModel, "")
	r := NewResolver(nil)

	resolved, err := r.Resolve(context.Background(), RouterOptions{
		Provider:   "openai",
		APIKey:     "k",
		Deployment: "my-deployment",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Model != "my-deployment" {
		t.Fatalf("expected deployment to back-fill model, got %q", resolved.Model)
	}
}
