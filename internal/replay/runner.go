// Package replay feeds recorded scam transcripts through the engine.
// Transcripts are NDJSON, one scammer message per line; replaying them
// exercises the full pipeline against real captured conversations.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/netrasec/jaal/internal/engine"
)

// Record is one transcript line.
type Record struct {
	SessionID string `json:"session_id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Channel   string `json:"channel"`
}

// Summary is what a replay run produced.
type Summary struct {
	LinesRead     int
	LinesSkipped  int
	TurnsHandled  int
	IntelCaptured int
	ReportsSent   int
	Errors        int
}

// saveEvery bounds how much progress a crash can lose; the state file
// is rewritten after every batch of lines.
const saveEvery = 10

type Runner struct {
	engine    *engine.Engine
	logger    *slog.Logger
	statePath string
}

func NewRunner(e *engine.Engine, statePath string, logger *slog.Logger) *Runner {
	return &Runner{engine: e, statePath: statePath, logger: logger}
}

// Run replays a transcript file through the engine, resuming past
// previously processed lines.
func (r *Runner) Run(ctx context.Context, path string) (*Summary, error) {
	state, err := LoadState(r.statePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	skip := state.Processed(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	sum := &Summary{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line <= skip {
			sum.LinesSkipped++
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("replay interrupted, saving state", "line", line-1)
			_ = state.Save()
			return sum, ctx.Err()
		default:
		}

		sum.LinesRead++
		r.handleLine(ctx, scanner.Bytes(), line, state, sum)
		state.MarkProcessed(path, line)

		if line%saveEvery == 0 {
			if err := state.Save(); err != nil {
				r.logger.Warn("save replay state", "line", line, "error", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	if err := state.Save(); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	r.logger.Info("replay complete",
		"path", path,
		"turns", sum.TurnsHandled,
		"intel", sum.IntelCaptured,
		"reports", sum.ReportsSent,
		"errors", sum.Errors)

	return sum, nil
}

// handleLine parses one transcript line and runs it through the engine.
// Malformed or incomplete lines count against the summary but never
// stop the run.
func (r *Runner) handleLine(ctx context.Context, raw []byte, line int, state *State, sum *Summary) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		r.logger.Warn("skipping malformed line", "line", line, "error", err)
		state.AddError(fmt.Sprintf("line %d: %v", line, err))
		sum.Errors++
		return
	}
	if rec.SessionID == "" || rec.Text == "" {
		sum.LinesSkipped++
		return
	}

	res, err := r.engine.HandleTurn(ctx, rec.SessionID, rec.Text, rec.Sender, rec.Channel)
	if err != nil {
		r.logger.Error("turn failed", "line", line, "session_id", rec.SessionID, "error", err)
		state.AddError(fmt.Sprintf("line %d: %v", line, err))
		sum.Errors++
		return
	}

	sum.TurnsHandled++
	for _, values := range res.IntelDelta {
		sum.IntelCaptured += len(values)
	}
	if res.ReportSent {
		sum.ReportsSent++
	}
}
