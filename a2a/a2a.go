// Package a2a implements the handoff and bot-to-bot protocol: packaging
// envelopes, validating their targets before any network call, and sending
// them through the dispatch gate so they run as durable steps when a durable
// boundary is ambient.
package a2a

import (
	"fmt"
)

// HandoffEnvelope transfers ownership of an ongoing thread to another agent.
// At least one of TargetWorkflowID / TargetWorkflowType must be set.
type HandoffEnvelope struct {
	SourceAgent        string         `json:"source_agent"`
	SourceWorkflowID   string         `json:"source_workflow_id"`
	SourceThreadID     string         `json:"source_thread_id"`
	TargetWorkflowID   string         `json:"target_workflow_id,omitempty"`
	TargetWorkflowType string         `json:"target_workflow_type,omitempty"`
	ParticipantID      string         `json:"participant_id"`
	Text               string         `json:"text"`
	Data               map[string]any `json:"data,omitempty"`
	Authorization      string         `json:"authorization,omitempty"`
	Hint               string         `json:"hint,omitempty"`
	Scope              string         `json:"scope,omitempty"`
}

// BotToBotEnvelope is a synchronous request between two agents outside the
// end-user conversation. Both target fields are required; Origin is stamped
// with the sender's workflow id so receivers can detect loops.
type BotToBotEnvelope struct {
	SourceAgent        string         `json:"source_agent"`
	SourceWorkflowID   string         `json:"source_workflow_id"`
	SourceThreadID     string         `json:"source_thread_id"`
	TargetWorkflowID   string         `json:"target_workflow_id"`
	TargetWorkflowType string         `json:"target_workflow_type"`
	ParticipantID      string         `json:"participant_id"`
	Text               string         `json:"text"`
	Data               map[string]any `json:"data,omitempty"`
	Authorization      string         `json:"authorization,omitempty"`
	Hint               string         `json:"hint,omitempty"`
	Scope              string         `json:"scope,omitempty"`
	RequestID          string         `json:"request_id,omitempty"`
}

// BotToBotResponse is the correlated answer to a bot-to-bot request.
type BotToBotResponse struct {
	RequestID string         `json:"request_id"`
	Text      string         `json:"text"`
	Data      map[string]any `json:"data,omitempty"`
}

// ValidationError rejects a malformed envelope before dispatch.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid envelope: %s: %s", e.Field, e.Message)
}

// TimeoutError reports a bot-to-bot exchange exceeding its bound. Distinct
// from "no answer" so callers can tell the two apart.
type TimeoutError struct {
	RequestID string
	Seconds   int
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("bot-to-bot request %s timed out after %ds", e.RequestID, e.Seconds)
}

// Validate checks a handoff envelope: non-empty text and at least one target
// field.
func (e *HandoffEnvelope) Validate() error {
	if e.Text == "" {
		return &ValidationError{Field: "text", Message: "request text must not be empty"}
	}
	if e.TargetWorkflowID == "" && e.TargetWorkflowType == "" {
		return &ValidationError{Field: "target", Message: "either target workflow id or type is required"}
	}
	return nil
}

// Validate checks a bot-to-bot envelope: both target fields are required.
func (e *BotToBotEnvelope) Validate() error {
	if e.Text == "" {
		return &ValidationError{Field: "text", Message: "request text must not be empty"}
	}
	if e.TargetWorkflowID == "" {
		return &ValidationError{Field: "target_workflow_id", Message: "target workflow id is required"}
	}
	if e.TargetWorkflowType == "" {
		return &ValidationError{Field: "target_workflow_type", Message: "target workflow type is required"}
	}
	return nil
}
