package core

import "sync"

// Message hints recognized on inbound messages.
const (
	// HintStateless requests a turn without conversational history; only the
	// system prompt is sent to the model.
	HintStateless = "stateless"
)

// InboundMessage is the latest message delivered on a thread, the one the
// current turn answers.
type InboundMessage struct {
	Text      string         `json:"text"`
	Data      map[string]any `json:"data,omitempty"`
	Type      string         `json:"type,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Hint      string         `json:"hint,omitempty"`
	Scope     string         `json:"scope,omitempty"`
	Origin    string         `json:"origin,omitempty"` // sender workflow id on bot-to-bot traffic
}

// Thread carries the conversational context for a single turn. It is created
// per inbound delivery and discarded when the turn completes.
//
// Thread is not safe for concurrent mutation except for the SkipResponse
// flag, which capability functions may set from the tool-call loop.
type Thread struct {
	ParticipantID string          `json:"participant_id"`
	WorkflowID    string          `json:"workflow_id"`
	WorkflowType  string          `json:"workflow_type"`
	AgentName     string          `json:"agent_name"`
	ThreadID      string          `json:"thread_id"`
	Authorization string          `json:"authorization,omitempty"`
	Message       InboundMessage  `json:"message"`
	History       []ChatMessage   `json:"history,omitempty"` // optional pre-assembled history
	State         map[string]any  `json:"state,omitempty"`

	mu           sync.Mutex
	skipResponse bool
}

// NewThread constructs a thread for one inbound delivery.
func NewThread(participantID, workflowID, workflowType, agentName, threadID string, msg InboundMessage) *Thread {
	return &Thread{
		ParticipantID: participantID,
		WorkflowID:    workflowID,
		WorkflowType:  workflowType,
		AgentName:     agentName,
		ThreadID:      threadID,
		Message:       msg,
		State:         map[string]any{},
	}
}

// SetSkipResponse marks the turn's reply as already delivered elsewhere
// (typically by a capability function), suppressing the router's own answer.
func (t *Thread) SetSkipResponse(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skipResponse = v
}

// ConsumeSkipResponse returns the flag and resets it. The reset is
// unconditional so a consumed suppression never leaks into the next turn.
func (t *Thread) ConsumeSkipResponse() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.skipResponse
	t.skipResponse = false
	return v
}

// SkipResponse reports the flag without consuming it.
func (t *Thread) SkipResponse() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipResponse
}

// Outcome is the explicit result of a routed turn: either a textual reply or
// a suppressed (no response) marker.
type Outcome struct {
	Suppressed bool   `json:"suppressed"`
	Text       string `json:"text,omitempty"`
}

// Suppressed returns the no-response outcome.
func SuppressedOutcome() Outcome { return Outcome{Suppressed: true} }

// TextOutcome returns a textual reply outcome.
func TextOutcome(text string) Outcome { return Outcome{Text: text} }
