package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RouterOptions captures the per-call tuning knobs of a turn. A value is
// immutable once handed to the router; defaults come from DefaultRouterOptions
// and individual fields are overridden by the caller.
type RouterOptions struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	Model      string `yaml:"model"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`

	// HistorySize is the number of persisted messages fetched per turn.
	HistorySize int `yaml:"history_size"`
	// TokenLimit engages history reduction when > 0; 0 disables reduction.
	TokenLimit int `yaml:"token_limit"`

	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// MaxConsecutiveCalls caps automatic tool-call iterations per turn.
	MaxConsecutiveCalls int `yaml:"max_consecutive_calls"`
}

// DefaultRouterOptions returns the baseline option set.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		Temperature:         0.7,
		MaxTokens:           4096,
		HistorySize:         20,
		TokenLimit:          0,
		HTTPTimeout:         60 * time.Second,
		MaxConsecutiveCalls: 10,
	}
}

// LoadFile reads RouterOptions defaults from a YAML file, applying them over
// DefaultRouterOptions. Unknown keys are rejected.
func LoadFile(path string) (RouterOptions, error) {
	opts := DefaultRouterOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		return opts, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return opts, nil
}
