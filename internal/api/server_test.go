package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/netrasec/jaal/internal/analyzer"
	"github.com/netrasec/jaal/internal/engine"
	"github.com/netrasec/jaal/internal/fatigue"
	"github.com/netrasec/jaal/internal/intel"
	"github.com/netrasec/jaal/internal/persona"
	"github.com/netrasec/jaal/internal/store"
)

func newTestServer(apiKey string) *Server {
	st := store.NewMemory()
	logger := slog.Default()
	e := engine.New(
		st,
		analyzer.New(analyzer.DefaultTunables()),
		intel.New(),
		fatigue.NewTracker(st, logger),
		persona.NewResponder(nil, logger),
		nil, nil,
		logger,
	)
	return NewServer(e, st, apiKey, 0, logger)
}

func postMessage(t *testing.T, s *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleMessage(t *testing.T) {
	s := newTestServer("")

	rec := postMessage(t, s, `{
		"sessionId": "s1",
		"message": {"text": "URGENT: pay to 9876543210@paytm now", "sender": "scammer"},
		"metadata": {"channel": "whatsapp"}
	}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.ScamDetected {
		t.Error("scamDetected = false for a payment demand")
	}
	if resp.ThreatLevel < 5 {
		t.Errorf("threatLevel = %d, want >= 5", resp.ThreatLevel)
	}
	if resp.Reply == "" {
		t.Error("empty reply")
	}
	if resp.TurnCount != 1 {
		t.Errorf("turnCount = %d, want 1", resp.TurnCount)
	}
	if len(resp.Intelligence["upi_id"]) != 1 {
		t.Errorf("intelligence = %v, want one upi_id", resp.Intelligence)
	}
}

func TestHandleMessage_BadRequests(t *testing.T) {
	s := newTestServer("")

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing session id", `{"message": {"text": "hi"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postMessage(t, s, tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer("topsecret")

	rec := postMessage(t, s, `{"sessionId": "s1", "message": {"text": "hi"}}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	rec = postMessage(t, s, `{"sessionId": "s1", "message": {"text": "hello there friend"}}`,
		map[string]string{"X-API-Key": "topsecret"})
	if rec.Code != http.StatusOK {
		t.Errorf("status with key = %d, want 200", rec.Code)
	}

	// Health stays open.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	hrec := httptest.NewRecorder()
	s.Handler().ServeHTTP(hrec, req)
	if hrec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", hrec.Code)
	}
}

func TestHandleReport(t *testing.T) {
	s := newTestServer("")

	for _, text := range []string{
		"your account is blocked, verify immediately",
		"pay to 9876543210@paytm right now",
		"send payment or police action will be taken",
	} {
		rec := postMessage(t, s, `{"sessionId": "s1", "message": {"text": "`+text+`", "sender": "scammer"}}`, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("message status = %d", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/report", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report struct {
		SessionID              string `json:"sessionId"`
		ScamDetected           bool   `json:"scamDetected"`
		TotalMessagesExchanged int    `json:"totalMessagesExchanged"`
		ExtractedIntelligence  struct {
			UPIIDs []string `json:"upiIds"`
		} `json:"extractedIntelligence"`
		Transcript []struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"transcript"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.SessionID != "s1" || !report.ScamDetected {
		t.Errorf("unexpected report header: %+v", report)
	}
	if report.TotalMessagesExchanged != 6 {
		t.Errorf("totalMessagesExchanged = %d, want 6", report.TotalMessagesExchanged)
	}
	if len(report.ExtractedIntelligence.UPIIDs) != 1 {
		t.Errorf("upiIds = %v, want one entry", report.ExtractedIntelligence.UPIIDs)
	}
	if len(report.Transcript) != 6 {
		t.Errorf("transcript length = %d, want 6", len(report.Transcript))
	}

	// Unknown sessions 404.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope/report", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", rec.Code)
	}
}
