package numerator

import (
	"context"
	"sync"
)

// MockSequencer is a test implementation of Sequencer.
// Use in unit tests to avoid store dependencies.
type MockSequencer struct {
	GetCurrentFunc func(ctx context.Context) int64
	GetNextFunc    func(ctx context.Context) (int64, error)

	mu   sync.Mutex
	last int64
}

// GetCurrent implements Sequencer.
func (m *MockSequencer) GetCurrent(ctx context.Context) int64 {
	if m.GetCurrentFunc != nil {
		return m.GetCurrentFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// GetNext implements Sequencer.
func (m *MockSequencer) GetNext(ctx context.Context) (int64, error) {
	if m.GetNextFunc != nil {
		return m.GetNextFunc(ctx)
	}
	// Default: in-memory counter starting at 1
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last++
	return m.last, nil
}

// Ensure compile-time interface compliance.
var _ Sequencer = (*MockSequencer)(nil)
