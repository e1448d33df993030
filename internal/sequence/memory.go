package sequence

import (
	"context"
	"sync"
)

// Memory is a process-local sequence. Numbers restart from the seed on
// every process start.
type Memory struct {
	mu   sync.Mutex
	next int64
}

// NewMemory returns a Memory sequence whose first number is start.
func NewMemory(start int64) *Memory {
	return &Memory{next: start}
}

// Peek implements Sequence.
func (m *Memory) Peek(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next, nil
}

// Next implements Sequence.
func (m *Memory) Next(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.next
	m.next++
	return n, nil
}

// Close implements Sequence.
func (m *Memory) Close() error {
	return nil
}
