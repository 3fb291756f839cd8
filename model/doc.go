// Package model defines the provider-neutral language model interface used by
// the completion engine, plus the normalized request/response structures for
// tool calling. Provider adapters live in subpackages (openai, anthropic) and
// cross-cutting wrappers in middleware.
package model
