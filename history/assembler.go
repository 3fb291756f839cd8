// Package history turns persisted messages into the bounded chronological
// chat history a turn sends to the model, and shrinks it under a token budget
// when one is configured.
package history

import (
	"strings"

	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/logging"
)

// Assembler fetches and reshapes persisted messages into chronological chat
// turns, always starting with the system prompt.
type Assembler struct {
	store  core.MessageStore
	logger logging.Logger
}

// NewAssembler creates an assembler over a message store.
func NewAssembler(store core.MessageStore, logger logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Assembler{store: store, logger: logger}
}

// Assemble returns the chat history for a turn.
//
// A stateless-hinted message yields only the system prompt, with no store
// fetch. A thread carrying pre-assembled history uses it as-is. Otherwise the
// first page (most recent first, size entries) is fetched and reshaped:
// reversed to chronological order, blank and non-conversational entries
// skipped, the trailing incoming entry dropped when it case-insensitively
// equals the message currently being answered, incoming mapped to the user
// role and outgoing to the assistant role.
func (a *Assembler) Assemble(thread *core.Thread, systemPrompt string, size int) ([]core.ChatMessage, error) {
	msgs := []core.ChatMessage{{Role: core.RoleSystem, Text: systemPrompt}}

	if thread.Message.Hint == core.HintStateless {
		a.logger.Debug("history.stateless", "thread_id", thread.ThreadID)
		return msgs, nil
	}

	if thread.History != nil {
		return append(msgs, thread.History...), nil
	}

	page, err := a.store.FetchHistory(thread.ThreadID, 1, size)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order and filter in one pass.
	var entries []core.PersistedMessage
	for i := len(page) - 1; i >= 0; i-- {
		m := page[i]
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.Direction != core.DirectionIncoming && m.Direction != core.DirectionOutgoing {
			continue
		}
		entries = append(entries, m)
	}

	// De-dup the message currently being answered: drop the trailing incoming
	// entry matching the current text. Earlier identical entries are kept.
	if n := len(entries); n > 0 {
		last := entries[n-1]
		if last.Direction == core.DirectionIncoming && strings.EqualFold(last.Text, thread.Message.Text) {
			entries = entries[:n-1]
		}
	}

	for _, m := range entries {
		role := core.RoleUser
		if m.Direction == core.DirectionOutgoing {
			role = core.RoleAssistant
		}
		msgs = append(msgs, core.ChatMessage{Role: role, Text: m.Text, Data: m.Data})
	}

	a.logger.Debug("history.assembled", "thread_id", thread.ThreadID, "turns", len(msgs)-1)
	return msgs, nil
}
