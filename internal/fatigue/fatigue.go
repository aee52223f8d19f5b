// Package fatigue accumulates a bounded score approximating the delay and
// confusion inflicted on the counterpart. The score is supplementary
// evidence only; it never drives the engagement decision.
package fatigue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/netrasec/jaal/internal/store"
)

// Event types recognized by the tracker. Unknown types still record with
// a weight of 1.
const (
	EventRepetitionRequest   = "repetition_request"
	EventClarificationNeeded = "clarification_needed"
	EventTechnicalError      = "technical_error"
	EventDelayTactic         = "delay_tactic"
	EventWrongInformation    = "wrong_information"
)

const (
	defaultWeight = 1
	maxScore      = 100
	scoreFactor   = 5
)

var weights = map[string]int{
	EventRepetitionRequest:   2,
	EventClarificationNeeded: 2,
	EventTechnicalError:      3,
	EventDelayTactic:         2,
	EventWrongInformation:    4,
}

// Weight returns the fixed weight for an event type.
func Weight(eventType string) int {
	if w, ok := weights[eventType]; ok {
		return w
	}
	return defaultWeight
}

// Score converts a total recorded weight into the bounded session score.
func Score(totalWeight int) int {
	if totalWeight < 0 {
		totalWeight = 0
	}
	score := totalWeight * scoreFactor
	if score > maxScore {
		return maxScore
	}
	return score
}

// EventStore is the slice of the session store the tracker needs.
type EventStore interface {
	AppendFatigueEvent(ctx context.Context, ev store.FatigueEvent) error
	FatigueWeightSum(ctx context.Context, sessionID string) (int, error)
}

// Tracker records fatigue events and recomputes the deterministic score
// over all events for a session. No decay is applied.
type Tracker struct {
	store  EventStore
	logger *slog.Logger
}

// NewTracker returns a Tracker backed by the given store.
func NewTracker(s EventStore, logger *slog.Logger) *Tracker {
	return &Tracker{store: s, logger: logger}
}

// Record appends an event and returns the recomputed session score.
func (t *Tracker) Record(ctx context.Context, sessionID, eventType string) (int, error) {
	ev := store.FatigueEvent{
		ID:        uuid.New(),
		SessionID: sessionID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Weight:    Weight(eventType),
	}
	if err := t.store.AppendFatigueEvent(ctx, ev); err != nil {
		return 0, fmt.Errorf("append fatigue event: %w", err)
	}
	return t.CurrentScore(ctx, sessionID)
}

// CurrentScore recomputes the score from all recorded events.
func (t *Tracker) CurrentScore(ctx context.Context, sessionID string) (int, error) {
	total, err := t.store.FatigueWeightSum(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("sum fatigue weights: %w", err)
	}
	return Score(total), nil
}
