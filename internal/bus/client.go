// Package bus connects the engine to NATS: inbound scammer turns can
// arrive as events, and captured intelligence and sent reports are
// published for downstream consumers.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectTurnInbound carries scammer messages from channel adapters.
	SubjectTurnInbound = "jaal.turn.inbound"
	// SubjectIntelCaptured announces newly captured intelligence items.
	SubjectIntelCaptured = "jaal.intel.captured"
	// SubjectReportSent announces a delivered session report.
	SubjectReportSent = "jaal.report.sent"
)

// InboundTurn is the event shape on SubjectTurnInbound.
type InboundTurn struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Channel   string `json:"channel"`
}

// IntelCaptured is the event shape on SubjectIntelCaptured.
type IntelCaptured struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// ReportSent is the event shape on SubjectReportSent.
type ReportSent struct {
	SessionID   string `json:"session_id"`
	ThreatLevel int    `json:"threat_level"`
	ItemCount   int    `json:"item_count"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
