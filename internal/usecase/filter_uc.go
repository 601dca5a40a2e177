package usecase

import (
	"strings"

	"telegram-chat-gate/internal/domain/model"
)

// Compile-time check
var _ FilterUseCase = (*filterUC)(nil)

// FilterUseCase classifies inbound texts before they reach the ledger.
type FilterUseCase interface {
	Classify(text string) model.Classification
}

const minWords = 3

// denylist is matched by case-insensitive substring containment, not by
// token. A benign word containing a banned substring is also blocked
// ("essex" contains "sex"); that over-blocking is deliberate and must stay
// byte-compatible with the historical policy.
var denylist = []string{
	"pic", "photo", "insta", "instagram", "call", "date", "sexy", "hot",
	"sister", "babe", "fuck", "sex", "nude", "kiss", "love you", "meet",
	"number", "phone", "snapchat", "whatsapp", ".com", "http", "www", "@",
}

type filterUC struct{}

func NewFilterUseCase() *filterUC {
	return &filterUC{}
}

// Classify is a pure function of the text: no state, no side effects.
func (f *filterUC) Classify(text string) model.Classification {
	trimmed := strings.TrimSpace(text)
	if len(strings.Fields(trimmed)) < minWords {
		return model.TooShort
	}
	lower := strings.ToLower(trimmed)
	for _, w := range denylist {
		if strings.Contains(lower, w) {
			return model.Blocked
		}
	}
	return model.Allowed
}
