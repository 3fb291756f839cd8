package a2a

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyTransport struct {
	mu   sync.Mutex
	sent []Outbound
	err  error

	// onSend, when set, runs asynchronously after a successful send. Used to
	// simulate the target answering a bot-to-bot request.
	onSend func(out Outbound)
}

func (s *spyTransport) Send(ctx context.Context, out Outbound) error {
	s.mu.Lock()
	s.sent = append(s.sent, out)
	onSend := s.onSend
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if onSend != nil {
		go onSend(out)
	}
	return nil
}

func (s *spyTransport) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *spyTransport) last() Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

func validHandoff() *HandoffEnvelope {
	return &HandoffEnvelope{
		SourceAgent:        "support_agent",
		SourceWorkflowID:   "wf-src",
		SourceThreadID:     "t1",
		TargetWorkflowType: "billing",
		ParticipantID:      "user-1",
		Text:               "customer needs a refund",
	}
}

func validBotToBot() *BotToBotEnvelope {
	return &BotToBotEnvelope{
		SourceAgent:        "support_agent",
		SourceWorkflowID:   "wf-src",
		SourceThreadID:     "t1",
		TargetWorkflowID:   "wf-billing",
		TargetWorkflowType: "billing",
		ParticipantID:      "user-1",
		Text:               "what is the refund status?",
	}
}

func TestHandoff_SendsWithOriginStamped(t *testing.T) {
	transport := &spyTransport{}
	svc := NewService(transport, nil, nil)

	err := svc.Handoff(context.Background(), validHandoff())
	require.NoError(t, err)
	require.Equal(t, 1, transport.sendCount())

	out := transport.last()
	assert.Equal(t, "wf-src", out.Origin)
	assert.Equal(t, "billing", out.WorkflowType)
	assert.Equal(t, "customer needs a refund", out.Text)
}

func TestHandoff_ValidationBlocksTransport(t *testing.T) {
	transport := &spyTransport{}
	svc := NewService(transport, nil, nil)

	env := validHandoff()
	env.TargetWorkflowID = ""
	env.TargetWorkflowType = ""

	err := svc.Handoff(context.Background(), env)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "target", vErr.Field)
	assert.Zero(t, transport.sendCount())
}

func TestHandoff_EmptyTextRejected(t *testing.T) {
	transport := &spyTransport{}
	svc := NewService(transport, nil, nil)

	env := validHandoff()
	env.Text = ""

	err := svc.Handoff(context.Background(), env)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "text", vErr.Field)
	assert.Zero(t, transport.sendCount())
}

func TestBotToBot_RequiresBothTargets(t *testing.T) {
	transport := &spyTransport{}
	svc := NewService(transport, nil, nil)

	env := validBotToBot()
	env.TargetWorkflowType = ""

	_, err := svc.BotToBot(context.Background(), env, 5)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "target_workflow_type", vErr.Field)
	assert.Zero(t, transport.sendCount())
}

func TestBotToBot_ResolvedResponseDelivered(t *testing.T) {
	transport := &spyTransport{}
	svc := NewService(transport, nil, nil)

	transport.onSend = func(out Outbound) {
		svc.Resolve(out.RequestID, &BotToBotResponse{
			RequestID: out.RequestID,
			Text:      "refund approved",
		})
	}

	resp, err := svc.BotToBot(context.Background(), validBotToBot(), 5)
	require.NoError(t, err)
	assert.Equal(t, "refund approved", resp.Text)

	out := transport.last()
	assert.NotEmpty(t, out.RequestID)
	assert.Equal(t, "wf-src", out.Origin)
	assert.Equal(t, out.RequestID, resp.RequestID)
}

func TestBotToBot_TimeoutReturnsTypedError(t *testing.T) {
	transport := &spyTransport{} // never answers
	svc := NewService(transport, nil, nil)

	_, err := svc.BotToBot(context.Background(), validBotToBot(), 0)
	var tErr *TimeoutError
	require.ErrorAs(t, err, &tErr)
	assert.NotEmpty(t, tErr.RequestID)

	// The pending slot is cleaned up, so a late answer is rejected.
	assert.False(t, svc.Resolve(tErr.RequestID, &BotToBotResponse{RequestID: tErr.RequestID}))
}

func TestBotToBot_TransportErrorPropagates(t *testing.T) {
	transport := &spyTransport{err: errors.New("network unreachable")}
	svc := NewService(transport, nil, nil)

	_, err := svc.BotToBot(context.Background(), validBotToBot(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network unreachable")
}

func TestResolve_UnknownRequestIgnored(t *testing.T) {
	svc := NewService(&spyTransport{}, nil, nil)
	assert.False(t, svc.Resolve("nonexistent", &BotToBotResponse{}))
}

func TestBotToBot_ContextCancellationWins(t *testing.T) {
	transport := &spyTransport{}
	svc := NewService(transport, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.BotToBot(ctx, validBotToBot(), 60)
	require.ErrorIs(t, err, context.Canceled)
}
