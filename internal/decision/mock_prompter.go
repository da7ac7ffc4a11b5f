package decision

import (
	"context"
	"sync"
)

// MockPrompter is a test implementation of the Prompter interface. It replays
// a scripted sequence of decisions and records every item it was shown;
// once the script is exhausted it approves everything.
type MockPrompter struct {
	script    []Decision
	reviewed  []ReviewItem
	callCount int
	mu        sync.Mutex
}

// NewMockPrompter creates a prompter that replays the given decisions in order.
func NewMockPrompter(script ...Decision) *MockPrompter {
	return &MockPrompter{script: script}
}

// Review returns the next scripted decision.
func (m *MockPrompter) Review(_ context.Context, item ReviewItem, _, _ int) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reviewed = append(m.reviewed, item)

	if m.callCount < len(m.script) {
		d := m.script[m.callCount]
		m.callCount++
		return d, nil
	}

	m.callCount++
	return Decision{Action: ActionApprove}, nil
}

// Reviewed returns the items presented to the prompter so far.
func (m *MockPrompter) Reviewed() []ReviewItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ReviewItem(nil), m.reviewed...)
}
