// Package callback decides when a finished-enough session is worth
// reporting, builds the report payload, and delivers it to the
// configured intake endpoint.
package callback

import "github.com/netrasec/jaal/internal/store"

// minTurns is the shortest conversation worth reporting; one or two
// exchanges rarely yield anything actionable.
const minTurns = 3

// minThreatWithoutIntel lets a high-confidence scam through even when
// no concrete identifiers were captured.
const minThreatWithoutIntel = 7

// Evaluate reports whether the session has earned a report. A session
// reports at most once: CallbackSent gates re-evaluation forever.
func Evaluate(sess *store.Session, intelCount int) bool {
	if sess.CallbackSent {
		return false
	}
	if !sess.EverEngaged {
		return false
	}
	if sess.TurnCount < minTurns {
		return false
	}
	return intelCount > 0 || sess.ThreatLevel >= minThreatWithoutIntel
}
