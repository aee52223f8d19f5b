package persona

import "github.com/netrasec/jaal/internal/analyzer"

// Honeypot characters. The character is picked to mirror the scammer's
// tone: pushy scammers get a confused victim they have to walk through
// everything, polite ones get an eager mark, and the rest get someone
// whose phone never cooperates.
const (
	CharConfusedElderly    = "confused_elderly"
	CharEagerVictim        = "eager_victim"
	CharTechnicalStruggler = "technical_struggler"
)

// MirrorCharacter maps the scammer's conversational style to the
// honeypot character that wastes the most of their time.
func MirrorCharacter(p analyzer.Persona) string {
	switch p {
	case analyzer.PersonaAggressive:
		return CharConfusedElderly
	case analyzer.PersonaPolite:
		return CharEagerVictim
	default:
		return CharTechnicalStruggler
	}
}

// categoryTemplates hold canned Hinglish replies per scam category,
// ordered by conversation stage. Replies past the last entry reuse it.
var categoryTemplates = map[analyzer.Category][]string{
	analyzer.CategoryBanking: {
		"Hello ji, kaun bol raha hai? Bank se ho kya?",
		"Account blocked? Arre, kal hi toh paise nikale the. Kaise block ho gaya?",
		"OTP aaya hai phone pe, par chashma nahi mil raha. Aap 2 minute ruko.",
		"Beta, branch jaake karwa lun? Wahan Sharma ji jaante hain mujhe.",
	},
	analyzer.CategoryPayment: {
		"Paise bhejne hain? Kitne? Kisko?",
		"UPI se kaise karte hain, beta? Mera phone naya hai, samajh nahi aata.",
		"PhonePe khol liya, ab kya karun? Screen pe bahut saare button hain.",
		"Arre transaction failed bata raha hai. Aap number phir se bhejo.",
	},
	analyzer.CategoryUrgency: {
		"Itni jaldi kya hai ji? Main abhi khana kha raha tha.",
		"Haan haan, kar raha hun. Phone thoda slow chal raha hai aaj.",
		"2 minute ruko, bijli chali gayi thi. Ab kya karna tha?",
	},
	analyzer.CategoryThreat: {
		"Police? Maine kya kiya? Main toh ghar pe hi rehta hun.",
		"Arrest mat karo ji, main sab karunga jo aap bologe. Kya karna hai?",
		"Legal notice kahan bheja? Mujhe toh kuch nahi mila dak mein.",
	},
	analyzer.CategoryRemoteAccess: {
		"AnyDesk? Ye kya hota hai? Play Store mein milega?",
		"Download ho raha hai... 43 percent. Internet bahut slow hai yahan.",
		"Install ho gaya par khul nahi raha. Code kahan dikhega?",
	},
	analyzer.CategoryRefund: {
		"Refund? Kitne ka? Maine toh kuch order nahi kiya tha.",
		"Cashback aayega? Accha accha. Kaise milega?",
		"Form bhar raha hun, par page baar baar band ho jata hai.",
	},
}

// characterTemplates back the generic case when no category matched.
var characterTemplates = map[string][]string{
	CharConfusedElderly: {
		"Hello? Hello? Awaaz nahi aa rahi theek se. Kaun bol raha hai?",
		"Beta, zara dheere bolo. Mujhe samajh nahi aaya.",
		"Ek minute, mera pota aata hai abhi, wohi phone chalata hai.",
	},
	CharEagerVictim: {
		"Ji haan, boliye! Main help karne ko taiyaar hun.",
		"Accha accha, aap batao kya karna hai, main kar deta hun.",
		"Thank you ji itna dhyan rakhne ke liye. Aage kya karun?",
	},
	CharTechnicalStruggler: {
		"Haan boliye. Phone mein kuch problem chal rahi hai waise.",
		"App khul nahi raha, hang ho gaya phone. Thoda time do.",
		"Restart kar raha hun phone, 2 minute mein wapas aata hun.",
	},
}

// TemplateStrategy serves canned replies. It is the zero-dependency
// fallback and never fails.
type TemplateStrategy struct{}

func (TemplateStrategy) Respond(req Request) string {
	lines, ok := categoryTemplates[req.Analysis.Category]
	if !ok {
		lines = characterTemplates[MirrorCharacter(req.Analysis.ScammerPersona)]
	}
	idx := req.TurnIndex - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(lines) {
		idx = len(lines) - 1
	}
	return lines[idx]
}
