// Package analyzer classifies inbound messages into scam categories and
// threat levels using lexical keyword matching. It is deliberately pure:
// identical input always yields identical output, and no input can make
// it fail.
package analyzer

import (
	"regexp"
	"strings"
)

// Category is the scam classification bucket for a message.
type Category string

const (
	CategoryBanking      Category = "banking"
	CategoryPayment      Category = "payment"
	CategoryUrgency      Category = "urgency"
	CategoryThreat       Category = "threat"
	CategoryRemoteAccess Category = "remote_access"
	CategoryRefund       Category = "refund"
	CategoryUnknown      Category = "unknown"
)

// Persona is the observed conversational style of the counterpart.
type Persona string

const (
	PersonaAggressive Persona = "aggressive"
	PersonaPolite     Persona = "polite"
	PersonaNeutral    Persona = "neutral"
)

// Result is the full analysis of a single message.
type Result struct {
	Category       Category `json:"category"`
	ThreatLevel    int      `json:"threat_level"` // 0-10
	ShouldEngage   bool     `json:"should_engage"`
	ScammerPersona Persona  `json:"scammer_persona"`
}

// Tunables are the empirically chosen threat bonuses. They have no
// derivation; treat them as configuration, not law.
type Tunables struct {
	PaymentCueBonus int
	UrgencyCueBonus int
	ThreatCueBonus  int
	DigitRunBonus   int
}

// DefaultTunables returns the stock bonus values.
func DefaultTunables() Tunables {
	return Tunables{
		PaymentCueBonus: 3,
		UrgencyCueBonus: 2,
		ThreatCueBonus:  2,
		DigitRunBonus:   1,
	}
}

// minEngageLength is the floor below which a message with no scam signal
// is considered a near-empty ping not worth engaging.
const minEngageLength = 5

type bucket struct {
	category Category
	keywords []string
}

// Buckets are evaluated in priority order; score ties resolve to the
// earlier bucket.
var buckets = []bucket{
	{CategoryBanking, []string{"account", "bank", "otp", "verify", "blocked", "kyc", "atm", "debit", "credit"}},
	{CategoryPayment, []string{"pay", "send", "upi", "paytm", "transfer", "phonepe", "gpay", "payment"}},
	{CategoryUrgency, []string{"urgent", "immediately", "now", "quick", "jaldi", "abhi"}},
	{CategoryThreat, []string{"blocked", "suspended", "action", "police", "arrest", "legal", "court"}},
	{CategoryRemoteAccess, []string{"anydesk", "teamviewer", "remote", "access", "install app", "download"}},
	{CategoryRefund, []string{"refund", "cashback", "wrong payment", "return money"}},
}

var (
	paymentCues  = []string{"pay", "send", "upi", "paytm", "transfer"}
	urgencyCues  = []string{"urgent", "immediately", "now", "jaldi", "abhi"}
	threatCues   = []string{"block", "suspend", "arrest", "police"}
	politeCues   = []string{"sir", "madam", "please", "kindly"}
	commandCues  = []string{"must", "have to", "will be", "shall be"}
	digitRunRe   = regexp.MustCompile(`[0-9]{4,}`)
	perKeyword   = 2 // points per keyword hit within a bucket
	maxThreat    = 10
	minFiredHeat = 3 // once any signal fires, threat never reports below this
)

// Analyzer scores messages. Safe for concurrent use.
type Analyzer struct {
	tun Tunables
}

// New returns an Analyzer with the given bonus tunables.
func New(tun Tunables) *Analyzer {
	return &Analyzer{tun: tun}
}

// Analyze classifies a message. priorThreat is the session's threat level
// before this message; the returned level never drops below it.
func (a *Analyzer) Analyze(text string, priorThreat int) Result {
	if strings.TrimSpace(text) == "" {
		return Result{
			Category:       CategoryUnknown,
			ThreatLevel:    0,
			ShouldEngage:   false,
			ScammerPersona: PersonaNeutral,
		}
	}

	lower := strings.ToLower(text)

	totalScore := 0
	bestScore := 0
	category := CategoryUnknown
	for _, b := range buckets {
		score := 0
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				score += perKeyword
			}
		}
		totalScore += score
		if score > bestScore {
			bestScore = score
			category = b.category
		}
	}

	hasPayment := containsAny(lower, paymentCues)
	hasUrgency := containsAny(lower, urgencyCues)
	hasThreat := containsAny(lower, threatCues)
	hasDigits := digitRunRe.MatchString(text)

	threat := totalScore
	if threat > maxThreat {
		threat = maxThreat
	}
	if hasPayment {
		threat += a.tun.PaymentCueBonus
	}
	if hasUrgency {
		threat += a.tun.UrgencyCueBonus
	}
	if hasThreat {
		threat += a.tun.ThreatCueBonus
	}
	if hasDigits {
		threat += a.tun.DigitRunBonus
	}

	fired := totalScore > 0 || hasPayment || hasUrgency || hasThreat || hasDigits
	if fired {
		threat = clamp(threat, minFiredHeat, maxThreat)
	} else {
		threat = 0
	}
	if threat < priorThreat {
		threat = priorThreat
	}
	if threat > maxThreat {
		threat = maxThreat
	}

	return Result{
		Category:       category,
		ThreatLevel:    threat,
		ShouldEngage:   threat >= 1 || hasPayment || len(strings.TrimSpace(text)) > minEngageLength,
		ScammerPersona: classifyPersona(lower),
	}
}

// classifyPersona counts style markers. Command and urgency language
// together mark an aggressive counterpart; politeness markers a polite one.
func classifyPersona(lower string) Persona {
	command := countHits(lower, commandCues) + countHits(lower, urgencyCues)
	polite := countHits(lower, politeCues)

	switch {
	case command >= 2:
		return PersonaAggressive
	case polite >= 2:
		return PersonaPolite
	default:
		return PersonaNeutral
	}
}

func countHits(lower string, cues []string) int {
	n := 0
	for _, c := range cues {
		if strings.Contains(lower, c) {
			n++
		}
	}
	return n
}

func containsAny(lower string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
