// Package store provides a volatile MessageStore implementation for tests and
// ephemeral demo setups.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/botrelay/botrelay/core"
)

// InMemoryStore keeps persisted messages in a process-local map keyed by
// thread id. It is safe for concurrent access. Returned slices are copies to
// prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]core.PersistedMessage
}

// NewInMemoryStore constructs an empty in-memory message store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{messages: make(map[string][]core.PersistedMessage)}
}

// Append records a message on a thread, assigning an id and timestamp when
// missing.
func (s *InMemoryStore) Append(msg core.PersistedMessage) core.PersistedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Created.IsZero() {
		msg.Created = time.Now()
	}
	s.messages[msg.ThreadID] = append(s.messages[msg.ThreadID], msg)
	return msg
}

// FetchHistory returns one page of a thread's messages, most recent first.
func (s *InMemoryStore) FetchHistory(threadID string, page, pageSize int) ([]core.PersistedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[threadID]
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return nil, nil
	}

	// Newest first.
	reversed := make([]core.PersistedMessage, len(all))
	for i, m := range all {
		reversed[len(all)-1-i] = m
	}

	start := (page - 1) * pageSize
	if start >= len(reversed) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(reversed) {
		end = len(reversed)
	}
	out := make([]core.PersistedMessage, end-start)
	copy(out, reversed[start:end])
	return out, nil
}

// Len returns the number of messages stored for a thread.
func (s *InMemoryStore) Len(threadID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[threadID])
}
