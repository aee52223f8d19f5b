// Package engine orchestrates one scammer turn end to end: analyze the
// message, harvest intelligence, track fatigue, produce the honeypot
// reply, and trigger the report when the session has earned one.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netrasec/jaal/internal/analyzer"
	"github.com/netrasec/jaal/internal/bus"
	"github.com/netrasec/jaal/internal/callback"
	"github.com/netrasec/jaal/internal/fatigue"
	"github.com/netrasec/jaal/internal/intel"
	"github.com/netrasec/jaal/internal/persona"
	"github.com/netrasec/jaal/internal/store"
)

const (
	senderScammer = "scammer"
	senderAgent   = "agent"
)

// disengagedReply is served when a message gives us nothing to work
// with; it neither confirms nor denies anything.
const disengagedReply = "Hello? Kuch sunai nahi diya. Kaun hai?"

// delayEventEvery injects a delay-tactic fatigue event on every Nth
// scammer turn; stalling is the whole point of the honeypot.
const delayEventEvery = 3

// itemConfidence is recorded for regex-extracted items. The extractors
// are precise but not validated against real registries.
const itemConfidence = 0.9

// Publisher pushes events for downstream consumers. A nil Publisher
// disables publishing.
type Publisher interface {
	Publish(subject string, data any) error
}

// ReportSink delivers session reports. A nil ReportSink disables
// reporting but not report evaluation.
type ReportSink interface {
	DeliverWithRetry(ctx context.Context, r callback.Report)
}

// TurnResult is what a processed scammer turn yields.
type TurnResult struct {
	Reply          string
	Engaged        bool
	ThreatLevel    int
	Category       analyzer.Category
	ScammerPersona analyzer.Persona
	IntelDelta     intel.Result
	FatigueScore   int
	TurnCount      int
	ReportSent     bool
}

type Engine struct {
	store     store.Store
	analyzer  *analyzer.Analyzer
	extractor *intel.Extractor
	fatigue   *fatigue.Tracker
	responder *persona.Responder
	sink      ReportSink
	pub       Publisher
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	reports sync.WaitGroup
}

func New(
	st store.Store,
	an *analyzer.Analyzer,
	ex *intel.Extractor,
	ft *fatigue.Tracker,
	rs *persona.Responder,
	sink ReportSink,
	pub Publisher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		store:     st,
		analyzer:  an,
		extractor: ex,
		fatigue:   ft,
		responder: rs,
		sink:      sink,
		pub:       pub,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing turns for one session.
// Turns within a session must observe each other's state; turns across
// sessions run concurrently.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[sessionID] = l
	}
	return l
}

// HandleTurn processes one scammer message and returns the honeypot's
// reply plus everything the turn changed.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, text, sender, channel string) (*TurnResult, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err == store.ErrNotFound {
		sess = &store.Session{
			ID:          sessionID,
			Category:    string(analyzer.CategoryUnknown),
			Channel:     channel,
			StartedAt:   now,
			PersonaType: string(analyzer.PersonaNeutral),
		}
		if err := e.store.CreateSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	res := e.analyzer.Analyze(text, sess.ThreatLevel)

	if sender == "" {
		sender = senderScammer
	}
	if err := e.store.AppendMessage(ctx, store.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
		Timestamp: now,
	}); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	delta, err := e.captureIntel(ctx, sessionID, text, now)
	if err != nil {
		return nil, err
	}

	turn := sess.TurnCount + 1

	var fatigueScore int
	if turn%delayEventEvery == 0 {
		fatigueScore, err = e.fatigue.Record(ctx, sessionID, fatigue.EventDelayTactic)
	} else {
		fatigueScore, err = e.fatigue.CurrentScore(ctx, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("track fatigue: %w", err)
	}

	reply := disengagedReply
	if res.ShouldEngage {
		history, err := e.history(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		reply = e.responder.Reply(ctx, persona.Request{
			Analysis:  res,
			History:   history,
			TurnIndex: turn,
			Intel:     delta,
			Message:   text,
		})
	}

	if err := e.store.AppendMessage(ctx, store.Message{
		ID:             uuid.New(),
		SessionID:      sessionID,
		Sender:         senderAgent,
		Text:           reply,
		Timestamp:      time.Now().UTC(),
		LatencySeconds: time.Since(now).Seconds(),
	}); err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}

	e.mergeSession(sess, res, turn, fatigueScore, now)

	items, err := e.store.Items(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load intelligence: %w", err)
	}

	reportSent := false
	if callback.Evaluate(sess, len(items)) {
		sess.CallbackSent = true
		ended := time.Now().UTC()
		sess.EndedAt = &ended
		reportSent = true
	}

	if err := e.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if reportSent {
		e.dispatchReport(ctx, sess, items)
	}
	e.publishIntel(sessionID, delta)

	return &TurnResult{
		Reply:          reply,
		Engaged:        res.ShouldEngage,
		ThreatLevel:    sess.ThreatLevel,
		Category:       analyzer.Category(sess.Category),
		ScammerPersona: res.ScammerPersona,
		IntelDelta:     delta,
		FatigueScore:   sess.FatigueScore,
		TurnCount:      sess.TurnCount,
		ReportSent:     reportSent,
	}, nil
}

// captureIntel extracts identifiers from the message and stores the
// ones not seen before in this session.
func (e *Engine) captureIntel(ctx context.Context, sessionID, text string, now time.Time) (intel.Result, error) {
	extracted := e.extractor.Extract(text)
	delta := make(intel.Result)
	for typ, values := range extracted {
		for _, v := range values {
			inserted, err := e.store.InsertItem(ctx, store.Item{
				ID:          uuid.New(),
				SessionID:   sessionID,
				Type:        typ,
				Value:       v,
				Confidence:  itemConfidence,
				ExtractedAt: now,
			})
			if err != nil {
				return nil, fmt.Errorf("store intelligence: %w", err)
			}
			if inserted {
				delta[typ] = append(delta[typ], v)
				e.logger.Info("intelligence captured",
					"session_id", sessionID,
					"type", typ,
					"value", v)
			}
		}
	}
	return delta, nil
}

// history loads prior messages as responder turns. The current scammer
// message is already stored, so it is excluded from the history.
func (e *Engine) history(ctx context.Context, sessionID string) ([]persona.Turn, error) {
	msgs, err := e.store.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(msgs) > 0 {
		msgs = msgs[:len(msgs)-1]
	}
	turns := make([]persona.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, persona.Turn{Sender: m.Sender, Text: m.Text})
	}
	return turns, nil
}

// mergeSession folds the turn's outcome into the session row. Threat
// and fatigue only ratchet upward; the category sticks once known.
func (e *Engine) mergeSession(sess *store.Session, res analyzer.Result, turn, fatigueScore int, now time.Time) {
	if res.ThreatLevel > sess.ThreatLevel {
		sess.ThreatLevel = res.ThreatLevel
	}
	if fatigueScore > sess.FatigueScore {
		sess.FatigueScore = fatigueScore
	}
	if sess.Category == string(analyzer.CategoryUnknown) && res.Category != analyzer.CategoryUnknown {
		sess.Category = string(res.Category)
	}
	sess.PersonaType = string(res.ScammerPersona)
	sess.EverEngaged = sess.EverEngaged || res.ShouldEngage
	sess.TurnCount = turn
	sess.TimeWastedSeconds = int(now.Sub(sess.StartedAt).Seconds())
}

// dispatchReport builds the report synchronously and delivers it off
// the reply path. Wait drains in-flight deliveries on shutdown.
func (e *Engine) dispatchReport(ctx context.Context, sess *store.Session, items []store.Item) {
	msgs, err := e.store.Messages(ctx, sess.ID)
	if err != nil {
		e.logger.Error("load messages for report", "session_id", sess.ID, "error", err)
		msgs = nil
	}
	report := callback.BuildReport(sess, items, msgs)

	if e.pub != nil {
		if err := e.pub.Publish(bus.SubjectReportSent, bus.ReportSent{
			SessionID:   sess.ID,
			ThreatLevel: sess.ThreatLevel,
			ItemCount:   len(items),
		}); err != nil {
			e.logger.Warn("publish report event", "error", err)
		}
	}

	if e.sink == nil {
		e.logger.Info("report built, no sink configured", "session_id", sess.ID)
		return
	}

	deliveryCtx := context.WithoutCancel(ctx)
	e.reports.Add(1)
	go func() {
		defer e.reports.Done()
		e.sink.DeliverWithRetry(deliveryCtx, report)
	}()
}

func (e *Engine) publishIntel(sessionID string, delta intel.Result) {
	if e.pub == nil {
		return
	}
	for typ, values := range delta {
		for _, v := range values {
			if err := e.pub.Publish(bus.SubjectIntelCaptured, bus.IntelCaptured{
				SessionID: sessionID,
				Type:      string(typ),
				Value:     v,
			}); err != nil {
				e.logger.Warn("publish intel event", "error", err)
			}
		}
	}
}

// Wait blocks until in-flight report deliveries finish.
func (e *Engine) Wait() {
	e.reports.Wait()
}
