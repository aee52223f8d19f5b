package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State tracks progress for resumable replay runs. Interrupting a long
// transcript and rerunning picks up at the first unprocessed line.
type State struct {
	StartedAt       time.Time      `json:"started_at"`
	LastProcessedAt time.Time      `json:"last_processed_at"`
	LinesProcessed  map[string]int `json:"lines_processed"` // transcript path -> line count
	Errors          []string       `json:"errors"`

	path string // not serialized
}

// LoadState loads replay state from disk, or creates a new one.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{
				StartedAt:      time.Now().UTC(),
				LinesProcessed: make(map[string]int),
				path:           path,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.LinesProcessed == nil {
		s.LinesProcessed = make(map[string]int)
	}
	s.path = path
	return &s, nil
}

// Save persists the state to disk.
func (s *State) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

// Processed returns how many lines of the given transcript are done.
func (s *State) Processed(path string) int {
	return s.LinesProcessed[path]
}

// MarkProcessed advances the processed line count for a transcript.
func (s *State) MarkProcessed(path string, lines int) {
	s.LinesProcessed[path] = lines
}

// AddError records a processing error.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}
