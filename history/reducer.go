package history

import (
	"context"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/logging"
)

// tokenizer encoding used for estimation.
const encodingName = "cl100k_base"

// Summarizer condenses dropped turns into one replacement message. A
// summarizer may delegate to the completion engine.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []core.ChatMessage) (string, error)
}

// Reducer shrinks history under a token budget. The system prompt is always
// preserved; turns are summarized when a summarizer is configured and
// truncated oldest-first otherwise (or when summarization fails to converge).
type Reducer struct {
	summarizer Summarizer
	logger     logging.Logger
	enc        *tiktoken.Tiktoken
}

// ReducerOptions configures a Reducer.
type ReducerOptions struct {
	Summarizer Summarizer
	Logger     logging.Logger
}

// NewReducer creates a reducer. Token counts use the cl100k_base encoding; if
// it cannot be loaded (offline environments) a character-ratio estimate is
// used instead.
func NewReducer(optFns ...func(o *ReducerOptions)) *Reducer {
	opts := ReducerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		opts.Logger.Warn("history.reducer.encoding_unavailable", "error", err.Error())
		enc = nil
	}
	return &Reducer{summarizer: opts.Summarizer, logger: opts.Logger, enc: enc}
}

// Reduce applies one single-pass reduction. A tokenLimit of 0 disables
// reduction entirely; otherwise the returned history's estimated token count
// never exceeds the limit.
func (r *Reducer) Reduce(ctx context.Context, msgs []core.ChatMessage, tokenLimit int) ([]core.ChatMessage, error) {
	if tokenLimit <= 0 || len(msgs) == 0 {
		return msgs, nil
	}
	if r.EstimateTokens(msgs) <= tokenLimit {
		return msgs, nil
	}

	system := msgs[0]
	turns := msgs[1:]

	if r.summarizer != nil {
		if reduced, ok := r.summarize(ctx, system, turns, tokenLimit); ok {
			return reduced, nil
		}
	}

	return r.truncate(system, turns, tokenLimit), nil
}

// summarize replaces the oldest half of the turns by one summary message.
// Returns ok=false when the summarizer errors or the result still exceeds the
// limit; the caller then falls back to truncation.
func (r *Reducer) summarize(ctx context.Context, system core.ChatMessage, turns []core.ChatMessage, tokenLimit int) ([]core.ChatMessage, bool) {
	if len(turns) < 2 {
		return nil, false
	}
	cut := len(turns) / 2
	summaryText, err := r.summarizer.Summarize(ctx, turns[:cut])
	if err != nil {
		r.logger.Warn("history.reducer.summarize_failed", "error", err.Error())
		return nil, false
	}

	reduced := make([]core.ChatMessage, 0, len(turns)-cut+2)
	reduced = append(reduced, system)
	reduced = append(reduced, core.ChatMessage{
		Role: core.RoleAssistant,
		Text: "Summary of earlier conversation: " + summaryText,
	})
	reduced = append(reduced, turns[cut:]...)

	if r.EstimateTokens(reduced) > tokenLimit {
		r.logger.Debug("history.reducer.summary_insufficient", "tokens", r.EstimateTokens(reduced), "limit", tokenLimit)
		return nil, false
	}
	r.logger.Info("history.reducer.summarized", "dropped_turns", cut, "kept_turns", len(turns)-cut)
	return reduced, true
}

// truncate drops the oldest turns until the history fits the budget. The
// system prompt is kept even if it alone exceeds the limit; there is nothing
// meaningful left to cut at that point.
func (r *Reducer) truncate(system core.ChatMessage, turns []core.ChatMessage, tokenLimit int) []core.ChatMessage {
	for len(turns) > 0 {
		candidate := append([]core.ChatMessage{system}, turns...)
		if r.EstimateTokens(candidate) <= tokenLimit {
			return candidate
		}
		turns = turns[1:]
	}
	r.logger.Warn("history.reducer.truncated_all", "limit", tokenLimit)
	return []core.ChatMessage{system}
}

// EstimateTokens returns the estimated token count for a history.
func (r *Reducer) EstimateTokens(msgs []core.ChatMessage) int {
	total := 0
	for _, m := range msgs {
		total += r.estimateText(m.Text)
		total += 4 // per-message framing overhead
	}
	return total
}

func (r *Reducer) estimateText(text string) int {
	if r.enc != nil {
		return len(r.enc.Encode(text, nil, nil))
	}
	// Rough fallback: ~4 characters per token for English-like text.
	n := len(strings.TrimSpace(text))
	return (n + 3) / 4
}
