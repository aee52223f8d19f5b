package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Sink posts reports to the intake endpoint.
type Sink struct {
	apiURL string
	token  string
	client *http.Client
	logger *slog.Logger
}

// deliveryAttempts and retryBackoff bound how hard a single report is
// pushed before it is dropped with a log line.
const deliveryAttempts = 3

var retryBackoff = 2 * time.Second

func NewSink(apiURL, token string, logger *slog.Logger) *Sink {
	return &Sink{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Deliver posts the report once.
func (s *Sink) Deliver(ctx context.Context, r Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("report rejected with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// DeliverWithRetry pushes the report up to deliveryAttempts times. It
// runs off the reply path, so it logs the final failure instead of
// propagating it.
func (s *Sink) DeliverWithRetry(ctx context.Context, r Report) {
	var lastErr error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		if err := s.Deliver(ctx, r); err == nil {
			s.logger.Info("report delivered",
				"session_id", r.SessionID,
				"attempt", attempt)
			return
		} else {
			lastErr = err
		}
		if attempt < deliveryAttempts {
			select {
			case <-time.After(retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				s.logger.Error("report delivery cancelled",
					"session_id", r.SessionID,
					"error", ctx.Err())
				return
			}
		}
	}
	s.logger.Error("report delivery failed",
		"session_id", r.SessionID,
		"attempts", deliveryAttempts,
		"error", lastErr)
}
