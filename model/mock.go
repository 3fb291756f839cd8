package model

import (
	"context"
	"fmt"
	"sync"
)

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Canned replies are keyed by the last message text; scripted responses (with
// tool calls) take precedence and are consumed in order.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	scripted  []Response
	requests  []Request
	err       error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider, SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input text.
func (m *MockModel) AddResponse(input, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = response
}

// Script enqueues full responses returned in order before canned lookups.
func (m *MockModel) Script(responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, responses...)
}

// Fail makes every Generate call return err.
func (m *MockModel) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns a copy of all requests seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if m.err != nil {
		return nil, &InvocationError{Provider: m.info.Provider, Err: m.err}
	}
	if len(m.scripted) > 0 {
		resp := m.scripted[0]
		m.scripted = m.scripted[1:]
		return &resp, nil
	}

	var input string
	if len(req.Messages) > 0 {
		input = req.Messages[len(req.Messages)-1].Text
	}
	text := m.responses[input]
	if text == "" {
		text = fmt.Sprintf("Mock response to: %s", input)
	}
	return &Response{Text: text, FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
