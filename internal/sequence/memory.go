package sequence

import (
	"context"
	"sync"
)

// Memory is an in-process Backend.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Memory struct {
	mu   sync.Mutex
	next map[string]int64
}

// NewMemory creates an empty counter registry.
func NewMemory() *Memory {
	return &Memory{next: make(map[string]int64)}
}

func (m *Memory) Reserve(_ context.Context, name string, count, start, increment int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	first, ok := m.next[name]
	if !ok {
		first = start
	}
	m.next[name] = first + count*increment
	return first, nil
}

func (m *Memory) Reset(_ context.Context, name string, next int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next[name] = next
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.next)
	return nil
}
