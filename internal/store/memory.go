package store

import (
	"sync"

	"github.com/braidnet/trustee/pkg/wire"
)

// Memory is an in-process Store, used by tests and the in-process protocol
// harness where durability across restarts is not exercised.
type Memory struct {
	mu       sync.Mutex
	messages []wire.Message
	seen     map[wire.Hash]struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{seen: map[wire.Hash]struct{}{}}
}

func (m *Memory) Add(msg wire.Message) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := msg.Hash()
	if _, ok := m.seen[h]; ok {
		return false, nil
	}
	m.seen[h] = struct{}{}
	m.messages = append(m.messages, msg)
	return true, nil
}

func (m *Memory) All() ([]wire.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]wire.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

func (m *Memory) Cursor() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages), nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
