// Package intel extracts structured identifier candidates (payment
// handles, phone numbers, account numbers, links) from raw message text.
// Extraction is lexical only — regex-class patterns, no semantic parsing —
// and side-effect free; deduplication across turns belongs to the caller.
package intel

import (
	"regexp"
	"sort"
	"strings"
)

// ItemType identifies a class of extracted intelligence.
type ItemType string

const (
	TypeUPIID           ItemType = "upi_id"
	TypePhoneNumber     ItemType = "phone_number"
	TypeBankAccount     ItemType = "bank_account"
	TypeIFSC            ItemType = "ifsc"
	TypeURL             ItemType = "url"
	TypeEmail           ItemType = "email"
	TypeRemoteAccessApp ItemType = "remote_access_app"
	TypeDeclaredName    ItemType = "declared_name"
)

// Result maps item types to the normalized values found in one message.
// Values are deduplicated within the call and sorted for determinism.
type Result map[ItemType][]string

var (
	upiRe      = regexp.MustCompile(`\b[a-zA-Z0-9._-]+@[a-zA-Z]+\b`)
	emailRe    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe    = regexp.MustCompile(`(?:\+?91[\s-]?)?([6-9][0-9]{9})\b`)
	digitRunRe = regexp.MustCompile(`[0-9]+`)
	ifscRe     = regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)
	urlRe      = regexp.MustCompile(`https?://[^\s]+`)
	appRe      = regexp.MustCompile(`(?i)\b(anydesk|teamviewer|quicksupport|rustdesk|chrome\s*remote)\b`)
	nameRe     = regexp.MustCompile(`\b(?i:my\s+name\s+is|i\s+am|this\s+is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// providerTokens are domain tokens of known UPI payment providers. An
// address on one of these is a payment handle, not an email.
var providerTokens = map[string]bool{
	"paytm":      true,
	"ybl":        true,
	"ibl":        true,
	"axl":        true,
	"apl":        true,
	"upi":        true,
	"oksbi":      true,
	"okaxis":     true,
	"okicici":    true,
	"okhdfcbank": true,
	"phonepe":    true,
	"gpay":       true,
	"airtel":     true,
	"freecharge": true,
}

// Extractor scans message text for intelligence items. Stateless and safe
// for concurrent use.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns every identifier candidate in text, keyed by type.
// Empty input yields an empty (non-nil) Result.
func (e *Extractor) Extract(text string) Result {
	out := newCollector()
	if strings.TrimSpace(text) == "" {
		return out.result()
	}

	emailSpans := e.extractEmails(text, out)
	e.extractHandles(text, emailSpans, out)
	e.extractPhones(text, out)
	e.extractAccounts(text, out)

	for _, m := range ifscRe.FindAllString(strings.ToUpper(text), -1) {
		out.add(TypeIFSC, m)
	}
	for _, m := range urlRe.FindAllString(text, -1) {
		out.add(TypeURL, strings.TrimRight(m, ".,;!?"))
	}
	for _, m := range appRe.FindAllString(text, -1) {
		out.add(TypeRemoteAccessApp, spaceRe.ReplaceAllString(strings.ToLower(m), " "))
	}
	for _, m := range nameRe.FindAllStringSubmatch(text, -1) {
		out.add(TypeDeclaredName, m[1])
	}

	return out.result()
}

// extractEmails records proper email addresses and returns their byte
// spans so handle extraction can skip them. Addresses whose provider
// label is a known payment token are folded into upi_id instead of
// being double-counted as email.
func (e *Extractor) extractEmails(text string, out *collector) [][]int {
	spans := emailRe.FindAllStringIndex(text, -1)
	for _, span := range spans {
		addr := strings.ToLower(text[span[0]:span[1]])
		at := strings.IndexByte(addr, '@')
		domain := addr[at+1:]
		label := domain
		if dot := strings.IndexByte(domain, '.'); dot >= 0 {
			label = domain[:dot]
		}
		if providerTokens[label] {
			out.add(TypeUPIID, addr[:at]+"@"+label)
			continue
		}
		out.add(TypeEmail, addr)
	}
	return spans
}

// extractHandles finds local@provider payment handles, skipping matches
// that sit inside a full email address.
func (e *Extractor) extractHandles(text string, emailSpans [][]int, out *collector) {
	for _, span := range upiRe.FindAllStringIndex(text, -1) {
		if insideAny(span[0], emailSpans) {
			continue
		}
		out.add(TypeUPIID, strings.ToLower(text[span[0]:span[1]]))
	}
}

// extractPhones matches 10-digit Indian mobile numbers, stripping an
// optional 91 country code whether spaced, hyphenated or fused. Only
// the national part is emitted. Matches whose start sits inside a
// longer digit run are rejected; those runs are account candidates.
func (e *Extractor) extractPhones(text string, out *collector) {
	for _, m := range phoneRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > 0 && isDigit(text[m[0]-1]) {
			continue
		}
		out.add(TypePhoneNumber, text[m[2]:m[3]])
	}
}

// extractAccounts treats maximal digit runs of 9-18 digits as bank
// account candidates. Runs of exactly 10 digits are excluded so phone
// numbers are not double-counted, as are 12-digit runs that are a
// mobile fused to its 91 prefix — a documented heuristic, not a
// guarantee: real 10-digit account numbers are missed and long
// non-account runs slip through.
func (e *Extractor) extractAccounts(text string, out *collector) {
	for _, m := range digitRunRe.FindAllString(text, -1) {
		if prefixedMobile(m) {
			continue
		}
		if n := len(m); n >= 9 && n <= 18 && n != 10 {
			out.add(TypeBankAccount, m)
		}
	}
}

// prefixedMobile reports whether a digit run is a valid mobile number
// fused to the 91 country code; those belong to phone_number.
func prefixedMobile(run string) bool {
	return len(run) == 12 && run[0] == '9' && run[1] == '1' && run[2] >= '6' && run[2] <= '9'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func insideAny(pos int, spans [][]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

// collector accumulates deduplicated values per type.
type collector struct {
	seen map[ItemType]map[string]bool
}

func newCollector() *collector {
	return &collector{seen: make(map[ItemType]map[string]bool)}
}

func (c *collector) add(t ItemType, v string) {
	if v == "" {
		return
	}
	if c.seen[t] == nil {
		c.seen[t] = make(map[string]bool)
	}
	c.seen[t][v] = true
}

func (c *collector) result() Result {
	out := make(Result, len(c.seen))
	for t, vals := range c.seen {
		list := make([]string, 0, len(vals))
		for v := range vals {
			list = append(list, v)
		}
		sort.Strings(list)
		out[t] = list
	}
	return out
}
