// Package store persists the evidentiary record of every engagement:
// sessions, their append-only message log, deduplicated intelligence
// items and fatigue events.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/netrasec/jaal/internal/intel"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("not found")

// Session is the per-conversation aggregate row. It is created on the
// first message for a new id, mutated once per turn and never deleted.
type Session struct {
	ID                string
	Category          string
	Channel           string
	StartedAt         time.Time
	EndedAt           *time.Time
	ThreatLevel       int // 0-10, monotonic non-decreasing
	FatigueScore      int // 0-100, monotonic non-decreasing
	TurnCount         int
	PersonaType       string
	EverEngaged       bool
	CallbackSent      bool
	TimeWastedSeconds int
}

// Message is one utterance in a session. Immutable, append-only.
type Message struct {
	ID             uuid.UUID
	SessionID      string
	Sender         string // "scammer" | "agent"
	Text           string
	Timestamp      time.Time
	LatencySeconds float64
}

// Item is a single extracted intelligence value. Unique per
// (session_id, type, value).
type Item struct {
	ID          uuid.UUID
	SessionID   string
	Type        intel.ItemType
	Value       string
	Confidence  float64
	ExtractedAt time.Time
}

// FatigueEvent is one recorded delay/confusion event. Append-only; the
// session fatigue score is recomputed over all events.
type FatigueEvent struct {
	ID        uuid.UUID
	SessionID string
	EventType string
	Timestamp time.Time
	Weight    int
}

// Store is the persistence boundary for the engine. Implementations must
// provide insert-if-absent semantics for intelligence items; everything
// else is plain append or whole-row update.
type Store interface {
	GetSession(ctx context.Context, id string) (*Session, error)
	CreateSession(ctx context.Context, s *Session) error
	UpdateSession(ctx context.Context, s *Session) error

	AppendMessage(ctx context.Context, m Message) error
	Messages(ctx context.Context, sessionID string) ([]Message, error)

	// InsertItem stores an intelligence item unless the same
	// (session, type, value) already exists. Reports whether a row was
	// actually inserted.
	InsertItem(ctx context.Context, it Item) (bool, error)
	Items(ctx context.Context, sessionID string) ([]Item, error)

	AppendFatigueEvent(ctx context.Context, ev FatigueEvent) error
	FatigueWeightSum(ctx context.Context, sessionID string) (int, error)

	Close()
}
