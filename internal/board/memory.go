package board

import (
	"context"
	"sort"
	"sync"

	"github.com/braidnet/trustee/pkg/wire"
)

// log is one board's append-only message history, shared by every Memory
// Client that names it. Modeled on the single shared vector every trustee
// session reads and writes in the in-process protocol test harness.
type log struct {
	mu       sync.Mutex
	messages []wire.Message
	nextID   uint64
	seen     map[wire.Hash]struct{}
}

func newLog() *log {
	return &log{seen: map[wire.Hash]struct{}{}}
}

func (l *log) add(msg wire.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := msg.Hash()
	if _, ok := l.seen[h]; ok {
		return
	}
	l.seen[h] = struct{}{}
	l.nextID++
	msg.ID = l.nextID
	l.messages = append(l.messages, msg)
}

func (l *log) since(id uint64) []wire.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []wire.Message
	for _, m := range l.messages {
		if m.ID > id {
			out = append(out, m)
		}
	}
	return out
}

// Registry is a process-local collection of named boards, shared by every
// trustee's Memory client in a test or harness run, the same way the
// in-process test driver wires every trustee's session to one shared board
// value instead of a real network transport.
type Registry struct {
	mu     sync.Mutex
	boards map[string]*log
}

// NewRegistry returns an empty board registry.
func NewRegistry() *Registry {
	return &Registry{boards: map[string]*log{}}
}

func (r *Registry) logFor(name string, create bool) (*log, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.boards[name]
	if !ok {
		if !create {
			return nil, false
		}
		l = newLog()
		r.boards[name] = l
	}
	return l, true
}

func (r *Registry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.boards))
	for name := range r.boards {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Memory is a board.Client backed by a Registry, for tests and the
// in-process multi-trustee harness. Every Memory sharing the same Registry
// sees the same boards.
type Memory struct {
	registry *Registry
}

// NewMemory returns a Client over registry. Boards are created lazily on
// first post; GetMessages on an unknown board returns an empty result, not
// an error, matching a board with nothing posted yet.
func NewMemory(registry *Registry) *Memory {
	return &Memory{registry: registry}
}

func (m *Memory) GetMessages(_ context.Context, boardName string, since uint64) ([]wire.Message, error) {
	l, ok := m.registry.logFor(boardName, false)
	if !ok {
		return nil, nil
	}
	return l.since(since), nil
}

func (m *Memory) InsertMessages(_ context.Context, boardName string, msgs []wire.Message) error {
	l, _ := m.registry.logFor(boardName, true)
	for _, msg := range msgs {
		l.add(msg)
	}
	return nil
}

func (m *Memory) ListBoards(_ context.Context) ([]string, error) {
	return m.registry.names(), nil
}

func (m *Memory) Close() error { return nil }

var _ Client = (*Memory)(nil)
