package core

import (
	"fmt"
	"sync"
)

// CallLimiter caps the number of consecutive automatic tool-call iterations
// within one turn, preventing a model that keeps requesting functions from
// looping forever.
type CallLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallLimiter creates a limiter allowing max iterations.
// If max == 0, no limit is enforced.
func NewCallLimiter(max int) *CallLimiter {
	return &CallLimiter{max: max}
}

// Increment counts one iteration and returns an error once the limit is exceeded.
func (l *CallLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("exceeded max consecutive tool calls: %d", l.max)
	}
	return nil
}

// Count returns the number of iterations recorded so far.
func (l *CallLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Remaining returns how many iterations are left, or -1 when unlimited.
func (l *CallLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.max == 0 {
		return -1
	}
	return l.max - l.count
}
