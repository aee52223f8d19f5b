package callback

import (
	"fmt"
	"sort"
	"strings"

	"github.com/netrasec/jaal/internal/intel"
	"github.com/netrasec/jaal/internal/store"
)

// Intelligence is the grouped evidence section of a report.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	Emails             []string `json:"emails"`
	IFSCCodes          []string `json:"ifscCodes"`
	RemoteAccessApps   []string `json:"remoteAccessApps"`
	DeclaredNames      []string `json:"declaredNames"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Report is the payload posted to the intake endpoint.
type Report struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	ScamCategory           string       `json:"scamCategory"`
	ThreatLevel            int          `json:"threatLevel"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	TimeWastedSeconds      int          `json:"timeWastedSeconds"`
	ExtractedIntelligence  Intelligence `json:"extractedIntelligence"`
	AgentNotes             string       `json:"agentNotes"`
}

// suspiciousKeywords are the terms flagged in the scammer's own
// messages for the report; reviewers skim these before raw transcripts.
var suspiciousKeywords = []string{
	"urgent", "verify", "blocked", "suspended", "immediately",
	"payment", "account", "bank", "upi", "refund",
}

// BuildReport assembles the report for a session from its stored rows.
func BuildReport(sess *store.Session, items []store.Item, msgs []store.Message) Report {
	grouped := Intelligence{
		BankAccounts:     []string{},
		UPIIDs:           []string{},
		PhishingLinks:    []string{},
		PhoneNumbers:     []string{},
		Emails:           []string{},
		IFSCCodes:        []string{},
		RemoteAccessApps: []string{},
		DeclaredNames:    []string{},
	}
	for _, it := range items {
		switch it.Type {
		case intel.TypeBankAccount:
			grouped.BankAccounts = append(grouped.BankAccounts, it.Value)
		case intel.TypeUPIID:
			grouped.UPIIDs = append(grouped.UPIIDs, it.Value)
		case intel.TypeURL:
			grouped.PhishingLinks = append(grouped.PhishingLinks, it.Value)
		case intel.TypePhoneNumber:
			grouped.PhoneNumbers = append(grouped.PhoneNumbers, it.Value)
		case intel.TypeEmail:
			grouped.Emails = append(grouped.Emails, it.Value)
		case intel.TypeIFSC:
			grouped.IFSCCodes = append(grouped.IFSCCodes, it.Value)
		case intel.TypeRemoteAccessApp:
			grouped.RemoteAccessApps = append(grouped.RemoteAccessApps, it.Value)
		case intel.TypeDeclaredName:
			grouped.DeclaredNames = append(grouped.DeclaredNames, it.Value)
		}
	}
	grouped.SuspiciousKeywords = scanKeywords(msgs)

	return Report{
		SessionID:              sess.ID,
		ScamDetected:           sess.EverEngaged,
		ScamCategory:           sess.Category,
		ThreatLevel:            sess.ThreatLevel,
		TotalMessagesExchanged: len(msgs),
		TimeWastedSeconds:      sess.TimeWastedSeconds,
		ExtractedIntelligence:  grouped,
		AgentNotes:             buildNotes(sess, len(items)),
	}
}

// scanKeywords collects which flag terms appeared across the scammer's
// messages, deduplicated and sorted.
func scanKeywords(msgs []store.Message) []string {
	seen := make(map[string]bool)
	for _, m := range msgs {
		if m.Sender != "scammer" {
			continue
		}
		lower := strings.ToLower(m.Text)
		for _, kw := range suspiciousKeywords {
			if strings.Contains(lower, kw) {
				seen[kw] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for kw := range seen {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

func buildNotes(sess *store.Session, itemCount int) string {
	return fmt.Sprintf(
		"Engaged %s scammer (persona: %s) for %d turns; threat level %d/10, fatigue %d/100, %d intelligence items captured.",
		sess.Category, sess.PersonaType, sess.TurnCount,
		sess.ThreatLevel, sess.FatigueScore, itemCount,
	)
}
