package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botrelay/botrelay/core"
)

type stubStore struct {
	page  []core.PersistedMessage
	err   error
	calls int
}

func (s *stubStore) FetchHistory(threadID string, page, pageSize int) ([]core.PersistedMessage, error) {
	s.calls++
	return s.page, s.err
}

func inboundThread(text string) *core.Thread {
	return core.NewThread("user-1", "wf-1", "support", "support_agent", "t1", core.InboundMessage{Text: text})
}

func TestAssemble_StatelessHintSkipsStore(t *testing.T) {
	store := &stubStore{page: []core.PersistedMessage{{Direction: core.DirectionIncoming, Text: "old"}}}
	a := NewAssembler(store, nil)

	thread := inboundThread("hello")
	thread.Message.Hint = core.HintStateless

	msgs, err := a.Assemble(thread, "You are helpful.", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, core.RoleSystem, msgs[0].Role)
	assert.Equal(t, "You are helpful.", msgs[0].Text)
	assert.Zero(t, store.calls)
}

func TestAssemble_PreAssembledHistoryUsedAsIs(t *testing.T) {
	store := &stubStore{}
	a := NewAssembler(store, nil)

	thread := inboundThread("hello")
	thread.History = []core.ChatMessage{
		{Role: core.RoleUser, Text: "earlier"},
		{Role: core.RoleAssistant, Text: "reply"},
	}

	msgs, err := a.Assemble(thread, "sys", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "earlier", msgs[1].Text)
	assert.Zero(t, store.calls)
}

func TestAssemble_ReversesFiltersAndMapsRoles(t *testing.T) {
	// Store returns most recent first: C(in), B(out), blank, note, A(in).
	store := &stubStore{page: []core.PersistedMessage{
		{Direction: core.DirectionIncoming, Text: "C"},
		{Direction: core.DirectionOutgoing, Text: "B"},
		{Direction: core.DirectionIncoming, Text: "   "},
		{Direction: "system_note", Text: "joined"},
		{Direction: core.DirectionIncoming, Text: "A"},
	}}
	a := NewAssembler(store, nil)

	msgs, err := a.Assemble(inboundThread("c"), "sys", 20)
	require.NoError(t, err)

	// Trailing incoming "C" matches the current message case-insensitively and
	// is dropped; blanks and bookkeeping directions are skipped.
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleSystem, msgs[0].Role)
	assert.Equal(t, core.ChatMessage{Role: core.RoleUser, Text: "A"}, msgs[1])
	assert.Equal(t, core.ChatMessage{Role: core.RoleAssistant, Text: "B"}, msgs[2])
}

func TestAssemble_EarlierIdenticalEntryKept(t *testing.T) {
	// The same text appears twice; only the trailing occurrence is deduped.
	store := &stubStore{page: []core.PersistedMessage{
		{Direction: core.DirectionIncoming, Text: "status?"},
		{Direction: core.DirectionOutgoing, Text: "all good"},
		{Direction: core.DirectionIncoming, Text: "status?"},
	}}
	a := NewAssembler(store, nil)

	msgs, err := a.Assemble(inboundThread("status?"), "sys", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "status?", msgs[1].Text)
	assert.Equal(t, "all good", msgs[2].Text)
}

func TestAssemble_TrailingIncomingDifferentTextKept(t *testing.T) {
	store := &stubStore{page: []core.PersistedMessage{
		{Direction: core.DirectionIncoming, Text: "something else"},
	}}
	a := NewAssembler(store, nil)

	msgs, err := a.Assemble(inboundThread("hello"), "sys", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "something else", msgs[1].Text)
}

func TestAssemble_StoreErrorPropagates(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	a := NewAssembler(store, nil)

	_, err := a.Assemble(inboundThread("hello"), "sys", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
