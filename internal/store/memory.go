package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs tests and development runs
// where no DATABASE_URL is configured; data does not survive a restart.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]Session
	messages map[string][]Message
	items    map[string][]Item
	itemKeys map[string]bool // sessionID|type|value
	fatigue  map[string][]FatigueEvent
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]Session),
		messages: make(map[string][]Message),
		items:    make(map[string][]Item),
		itemKeys: make(map[string]bool),
		fatigue:  make(map[string][]FatigueEvent),
	}
}

func (m *Memory) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) UpdateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) AppendMessage(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *Memory) Messages(_ context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Message, len(m.messages[sessionID]))
	copy(out, m.messages[sessionID])
	return out, nil
}

func (m *Memory) InsertItem(_ context.Context, it Item) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := it.SessionID + "|" + string(it.Type) + "|" + it.Value
	if m.itemKeys[key] {
		return false, nil
	}
	m.itemKeys[key] = true
	m.items[it.SessionID] = append(m.items[it.SessionID], it)
	return true, nil
}

func (m *Memory) Items(_ context.Context, sessionID string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, len(m.items[sessionID]))
	copy(out, m.items[sessionID])
	return out, nil
}

func (m *Memory) AppendFatigueEvent(_ context.Context, ev FatigueEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fatigue[ev.SessionID] = append(m.fatigue[ev.SessionID], ev)
	return nil
}

func (m *Memory) FatigueWeightSum(_ context.Context, sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, ev := range m.fatigue[sessionID] {
		total += ev.Weight
	}
	return total, nil
}

func (m *Memory) Close() {}
