package a2a

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/botrelay/botrelay/dispatch"
	"github.com/botrelay/botrelay/logging"
)

// Outbound is the transport-level view of an envelope.
type Outbound struct {
	ParticipantID string         `json:"participant_id"`
	ThreadID      string         `json:"thread_id,omitempty"`
	WorkflowID    string         `json:"workflow_id,omitempty"`
	WorkflowType  string         `json:"workflow_type,omitempty"`
	Text          string         `json:"text"`
	Data          map[string]any `json:"data,omitempty"`
	RequestID     string         `json:"request_id,omitempty"`
	Hint          string         `json:"hint,omitempty"`
	Scope         string         `json:"scope,omitempty"`
	Origin        string         `json:"origin,omitempty"`
	Authorization string         `json:"authorization,omitempty"`
}

// Transport delivers outbound messages to their target workflow.
type Transport interface {
	Send(ctx context.Context, out Outbound) error
}

// Service packages and sends handoff / bot-to-bot envelopes through the
// dispatch gate, and correlates bot-to-bot replies with waiting senders.
type Service struct {
	transport Transport
	gate      *dispatch.Gate
	logger    logging.Logger

	mu      sync.Mutex
	pending map[string]chan *BotToBotResponse
}

// NewService creates an a2a service over a transport.
func NewService(transport Transport, gate *dispatch.Gate, logger logging.Logger) *Service {
	if gate == nil {
		gate = dispatch.NewGate(logger)
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Service{
		transport: transport,
		gate:      gate,
		logger:    logger,
		pending:   make(map[string]chan *BotToBotResponse),
	}
}

// Handoff validates and sends a handoff envelope. Validation failures are
// returned before any transport call.
func (s *Service) Handoff(ctx context.Context, env *HandoffEnvelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	out := Outbound{
		ParticipantID: env.ParticipantID,
		ThreadID:      env.SourceThreadID,
		WorkflowID:    env.TargetWorkflowID,
		WorkflowType:  env.TargetWorkflowType,
		Text:          env.Text,
		Data:          env.Data,
		Hint:          env.Hint,
		Scope:         env.Scope,
		Origin:        env.SourceWorkflowID,
		Authorization: env.Authorization,
	}

	_, err := s.gate.Do(ctx, "handoff", func(ctx context.Context) (any, error) {
		return nil, s.transport.Send(ctx, out)
	})
	if err != nil {
		return err
	}
	s.logger.Info("a2a.handoff.sent",
		"source_agent", env.SourceAgent,
		"target_workflow_id", env.TargetWorkflowID,
		"target_workflow_type", env.TargetWorkflowType,
	)
	return nil
}

// BotToBot validates and sends a bot-to-bot request, then awaits the
// correlated response for up to timeoutSeconds. Origin is stamped with the
// sender's workflow id before sending. The timeout is enforced independently
// of ambient cancellation; whichever fires first wins.
func (s *Service) BotToBot(ctx context.Context, env *BotToBotEnvelope, timeoutSeconds int) (*BotToBotResponse, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if env.RequestID == "" {
		env.RequestID = uuid.NewString()
	}

	ch := make(chan *BotToBotResponse, 1)
	s.mu.Lock()
	s.pending[env.RequestID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, env.RequestID)
		s.mu.Unlock()
	}()

	out := Outbound{
		ParticipantID: env.ParticipantID,
		ThreadID:      env.SourceThreadID,
		WorkflowID:    env.TargetWorkflowID,
		WorkflowType:  env.TargetWorkflowType,
		Text:          env.Text,
		Data:          env.Data,
		RequestID:     env.RequestID,
		Hint:          env.Hint,
		Scope:         env.Scope,
		Origin:        env.SourceWorkflowID,
		Authorization: env.Authorization,
	}

	if _, err := s.gate.Do(ctx, "bot_to_bot", func(ctx context.Context) (any, error) {
		return nil, s.transport.Send(ctx, out)
	}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(time.Duration(timeoutSeconds) * time.Second)
	defer timer.Stop()

	select {
	case resp := <-ch:
		s.logger.Info("a2a.bot_to_bot.answered", "request_id", env.RequestID)
		return resp, nil
	case <-timer.C:
		s.logger.Warn("a2a.bot_to_bot.timeout", "request_id", env.RequestID, "timeout_s", timeoutSeconds)
		return nil, &TimeoutError{RequestID: env.RequestID, Seconds: timeoutSeconds}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolve delivers a correlated bot-to-bot response to its waiting sender.
// Returns false when no request with that id is waiting (already timed out,
// already answered, or never sent from this process).
func (s *Service) Resolve(requestID string, resp *BotToBotResponse) bool {
	s.mu.Lock()
	ch, ok := s.pending[requestID]
	if ok {
		delete(s.pending, requestID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	ch <- resp
	return true
}
