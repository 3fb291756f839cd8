package core

import "time"

// Conversation roles used in chat turns sent to models.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Persisted message directions as recorded by the message store.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// ChatMessage is a single chronological turn in the conversation sent to a
// language model.
type ChatMessage struct {
	Role string         `json:"role"`
	Text string         `json:"text"`
	Data map[string]any `json:"data,omitempty"`
}

// PersistedMessage is a read-only record owned by the message store
// collaborator. Direction distinguishes user traffic ("incoming") from agent
// replies ("outgoing"); other directions are bookkeeping entries skipped
// during history assembly.
type PersistedMessage struct {
	ID            string         `json:"id"`
	ThreadID      string         `json:"thread_id"`
	Created       time.Time      `json:"created"`
	Direction     string         `json:"direction"`
	Text          string         `json:"text"`
	Data          map[string]any `json:"data,omitempty"`
	ParticipantID string         `json:"participant_id,omitempty"`
	WorkflowID    string         `json:"workflow_id,omitempty"`
}

// MessageStore is the persistence collaborator consumed by history assembly.
// FetchHistory returns one page of messages for a thread, most recent first.
type MessageStore interface {
	FetchHistory(threadID string, page, pageSize int) ([]PersistedMessage, error)
}
