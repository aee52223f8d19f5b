// Package persona produces the honeypot's replies. A generative backend
// writes in-character Hinglish when one is configured; canned templates
// cover the rest, so a reply is always available.
package persona

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/netrasec/jaal/internal/analyzer"
	"github.com/netrasec/jaal/internal/intel"
	"github.com/netrasec/jaal/internal/openrouter"
)

// Turn is one prior exchange in the conversation.
type Turn struct {
	Sender string // "scammer" or "agent"
	Text   string
}

// Request carries everything the reply needs to know about the session.
type Request struct {
	Analysis  analyzer.Result
	History   []Turn
	TurnIndex int // 1-based index of the current scammer turn
	Intel     intel.Result
	Message   string // the scammer's latest message
}

// Generator produces a reply or fails; the Responder falls back to
// templates on failure.
type Generator interface {
	Respond(ctx context.Context, req Request) (string, error)
}

// historyWindow limits how much conversation the prompt carries.
const historyWindow = 5

// maxReplyTokens bounds the completion; replies are a few short
// sentences.
const maxReplyTokens = 150

// attemptTimeouts shrink on each retry so a slow upstream cannot stall
// the reply path for long.
var attemptTimeouts = []time.Duration{15 * time.Second, 10 * time.Second, 8 * time.Second}

// GenerativeStrategy asks an OpenRouter model for the reply.
type GenerativeStrategy struct {
	client *openrouter.Client
	logger *slog.Logger
}

var _ Generator = (*GenerativeStrategy)(nil)

func NewGenerativeStrategy(client *openrouter.Client, logger *slog.Logger) *GenerativeStrategy {
	return &GenerativeStrategy{client: client, logger: logger}
}

func (g *GenerativeStrategy) Respond(ctx context.Context, req Request) (string, error) {
	system := BuildSystemPrompt(MirrorCharacter(req.Analysis.ScammerPersona), req.TurnIndex, req.Analysis)
	messages := buildMessages(req)

	var lastErr error
	for attempt, timeout := range attemptTimeouts {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := g.client.Complete(callCtx, system, messages, maxReplyTokens)
		cancel()
		if err == nil {
			return clampSentences(text, 3), nil
		}
		lastErr = err
		g.logger.Warn("reply generation failed",
			"attempt", attempt+1,
			"error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("generate reply: %w", lastErr)
}

// buildMessages turns the recent history plus the latest message into
// the chat transcript the model sees. Scammer turns are "user", our own
// are "assistant".
func buildMessages(req Request) []openrouter.Message {
	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	msgs := make([]openrouter.Message, 0, len(history)+1)
	for _, t := range history {
		role := "user"
		if t.Sender == "agent" {
			role = "assistant"
		}
		msgs = append(msgs, openrouter.Message{Role: role, Content: t.Text})
	}
	msgs = append(msgs, openrouter.Message{Role: "user", Content: req.Message})
	return msgs
}

// clampSentences truncates text after n sentence terminators. Models
// ignore length instructions often enough that we enforce the budget
// ourselves.
func clampSentences(text string, n int) string {
	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return strings.TrimSpace(text)
}

// Responder is the reply pipeline: try the generator, fall back to
// templates. Reply never fails; the conversation must keep moving even
// when the model is down.
type Responder struct {
	gen    Generator // nil means template-only
	tmpl   TemplateStrategy
	logger *slog.Logger
}

func NewResponder(gen Generator, logger *slog.Logger) *Responder {
	return &Responder{gen: gen, logger: logger}
}

func (r *Responder) Reply(ctx context.Context, req Request) string {
	if r.gen != nil {
		text, err := r.gen.Respond(ctx, req)
		if err == nil {
			return text
		}
		r.logger.Warn("falling back to template reply", "error", err)
	}
	return r.tmpl.Respond(req)
}
