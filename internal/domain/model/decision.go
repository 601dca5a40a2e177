package model

// Decision is the access ledger's verdict for one inbound message.
type Decision int

const (
	// TrialActive: the global free-trial window still covers now.
	TrialActive Decision = iota
	// PaidActive: the user is inside a paid 24h window.
	PaidActive
	// QuotaAvailable: a free message was consumed.
	QuotaAvailable
	// QuotaExhausted: the daily free allowance is used up.
	QuotaExhausted
)

func (d Decision) String() string {
	switch d {
	case TrialActive:
		return "trial_active"
	case PaidActive:
		return "paid_active"
	case QuotaAvailable:
		return "quota_available"
	case QuotaExhausted:
		return "quota_exhausted"
	default:
		return "unknown"
	}
}

// Classification is the content filter's verdict for one text.
type Classification int

const (
	Allowed Classification = iota
	TooShort
	Blocked
)

func (c Classification) String() string {
	switch c {
	case Allowed:
		return "allowed"
	case TooShort:
		return "too_short"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}
