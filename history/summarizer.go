package history

import (
	"context"
	"strings"

	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/engine"
)

const summaryInstruction = "Summarize the following conversation in a compact paragraph. " +
	"Keep names, decisions and open questions. Do not add commentary."

// EngineSummarizer delegates summarization to a completion engine.
type EngineSummarizer struct {
	engine *engine.Engine
	opts   engine.AskOptions
}

// NewEngineSummarizer wraps an engine as a Summarizer.
func NewEngineSummarizer(e *engine.Engine, opts engine.AskOptions) *EngineSummarizer {
	return &EngineSummarizer{engine: e, opts: opts}
}

// Summarize implements Summarizer.
func (s *EngineSummarizer) Summarize(ctx context.Context, msgs []core.ChatMessage) (string, error) {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	prompt := []core.ChatMessage{{Role: core.RoleUser, Text: b.String()}}
	return s.engine.Ask(ctx, summaryInstruction, prompt, nil, s.opts)
}
