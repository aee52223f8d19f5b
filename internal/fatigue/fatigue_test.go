package fatigue

import (
	"context"
	"log/slog"
	"testing"

	"github.com/netrasec/jaal/internal/store"
)

func TestWeight(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		want      int
	}{
		{"repetition request", EventRepetitionRequest, 2},
		{"clarification needed", EventClarificationNeeded, 2},
		{"technical error", EventTechnicalError, 3},
		{"delay tactic", EventDelayTactic, 2},
		{"wrong information", EventWrongInformation, 4},
		{"unknown defaults to 1", "sighing_loudly", 1},
		{"empty defaults to 1", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Weight(tt.eventType); got != tt.want {
				t.Errorf("Weight(%q) = %d, want %d", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		total int
		want  int
	}{
		{"zero weight", 0, 0},
		{"small total", 4, 20},
		{"at the cap", 20, 100},
		{"beyond the cap", 50, 100},
		{"negative clamps to zero", -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.total); got != tt.want {
				t.Errorf("Score(%d) = %d, want %d", tt.total, got, tt.want)
			}
		})
	}
}

func TestTracker_RecordAccumulates(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewMemory(), slog.Default())

	score, err := tr.Record(ctx, "s1", EventDelayTactic) // weight 2 -> 10
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if score != 10 {
		t.Errorf("score after one event = %d, want 10", score)
	}

	score, err = tr.Record(ctx, "s1", EventWrongInformation) // +4 -> 30
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if score != 30 {
		t.Errorf("score after two events = %d, want 30", score)
	}

	// Scores never decrease and stay within [0,100].
	prev := score
	for i := 0; i < 30; i++ {
		score, err = tr.Record(ctx, "s1", EventTechnicalError)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if score < prev {
			t.Fatalf("score decreased: %d -> %d", prev, score)
		}
		if score > 100 {
			t.Fatalf("score exceeded cap: %d", score)
		}
		prev = score
	}
	if score != 100 {
		t.Errorf("final score = %d, want 100", score)
	}

	// Other sessions are unaffected.
	other, err := tr.CurrentScore(ctx, "s2")
	if err != nil || other != 0 {
		t.Errorf("CurrentScore(s2) = (%d, %v), want (0, nil)", other, err)
	}
}
