package callback

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/netrasec/jaal/internal/intel"
	"github.com/netrasec/jaal/internal/store"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		sess       store.Session
		intelCount int
		want       bool
	}{
		{
			name:       "all conditions met",
			sess:       store.Session{EverEngaged: true, TurnCount: 3, ThreatLevel: 5},
			intelCount: 1,
			want:       true,
		},
		{
			name:       "already sent",
			sess:       store.Session{EverEngaged: true, TurnCount: 5, CallbackSent: true},
			intelCount: 3,
			want:       false,
		},
		{
			name:       "never engaged",
			sess:       store.Session{TurnCount: 5},
			intelCount: 3,
			want:       false,
		},
		{
			name:       "too few turns",
			sess:       store.Session{EverEngaged: true, TurnCount: 2},
			intelCount: 3,
			want:       false,
		},
		{
			name:       "no intel but high threat",
			sess:       store.Session{EverEngaged: true, TurnCount: 4, ThreatLevel: 8},
			intelCount: 0,
			want:       true,
		},
		{
			name:       "no intel and moderate threat",
			sess:       store.Session{EverEngaged: true, TurnCount: 4, ThreatLevel: 6},
			intelCount: 0,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(&tt.sess, tt.intelCount); got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildReport(t *testing.T) {
	sess := &store.Session{
		ID:                "s1",
		Category:          "banking",
		ThreatLevel:       8,
		FatigueScore:      40,
		TurnCount:         4,
		PersonaType:       "aggressive",
		EverEngaged:       true,
		TimeWastedSeconds: 312,
	}
	items := []store.Item{
		{Type: intel.TypeUPIID, Value: "fraud@paytm"},
		{Type: intel.TypePhoneNumber, Value: "9876543210"},
		{Type: intel.TypeBankAccount, Value: "123456789012"},
		{Type: intel.TypeURL, Value: "http://fake-bank.example"},
	}
	msgs := []store.Message{
		{Sender: "scammer", Text: "URGENT: your account is blocked"},
		{Sender: "agent", Text: "kaun bol raha hai?"},
		{Sender: "scammer", Text: "verify now, send payment"},
		{Sender: "agent", Text: "ek minute ruko"},
	}

	r := BuildReport(sess, items, msgs)

	if r.SessionID != "s1" || !r.ScamDetected || r.ScamCategory != "banking" {
		t.Errorf("unexpected header fields: %+v", r)
	}
	if r.TotalMessagesExchanged != 4 {
		t.Errorf("TotalMessagesExchanged = %d, want 4", r.TotalMessagesExchanged)
	}
	if r.TimeWastedSeconds != 312 {
		t.Errorf("TimeWastedSeconds = %d, want 312", r.TimeWastedSeconds)
	}
	if !reflect.DeepEqual(r.ExtractedIntelligence.UPIIDs, []string{"fraud@paytm"}) {
		t.Errorf("UPIIDs = %v", r.ExtractedIntelligence.UPIIDs)
	}
	if !reflect.DeepEqual(r.ExtractedIntelligence.PhishingLinks, []string{"http://fake-bank.example"}) {
		t.Errorf("PhishingLinks = %v", r.ExtractedIntelligence.PhishingLinks)
	}
	// Agent text never contributes keywords; scammer messages above
	// carry urgent, account, blocked, verify, payment.
	want := []string{"account", "blocked", "payment", "urgent", "verify"}
	if !reflect.DeepEqual(r.ExtractedIntelligence.SuspiciousKeywords, want) {
		t.Errorf("SuspiciousKeywords = %v, want %v", r.ExtractedIntelligence.SuspiciousKeywords, want)
	}
	if r.AgentNotes == "" {
		t.Error("empty agent notes")
	}

	// Empty groups marshal as [] rather than null.
	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	ei := decoded["extractedIntelligence"].(map[string]any)
	if ei["emails"] == nil {
		t.Error("emails marshalled as null, want []")
	}
}

func TestSink_Deliver(t *testing.T) {
	var gotAuth string
	var gotReport Report
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReport)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSink(server.URL, "secret-token", slog.Default())
	err := s.Deliver(context.Background(), Report{SessionID: "s1", ScamDetected: true})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReport.SessionID != "s1" {
		t.Errorf("delivered SessionID = %q", gotReport.SessionID)
	}
}

func TestSink_DeliverRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	s := NewSink(server.URL, "", slog.Default())
	if err := s.Deliver(context.Background(), Report{SessionID: "s1"}); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestSink_DeliverWithRetryRecovers(t *testing.T) {
	old := retryBackoff
	retryBackoff = time.Millisecond
	defer func() { retryBackoff = old }()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSink(server.URL, "", slog.Default())
	s.DeliverWithRetry(context.Background(), Report{SessionID: uuid.NewString()})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
