package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telegram-chat-gate/internal/config"
	"telegram-chat-gate/internal/domain/model"
	"telegram-chat-gate/internal/domain/ports/adapter"
	"telegram-chat-gate/internal/infra/metrics"
	"telegram-chat-gate/internal/usecase"

	"github.com/rs/zerolog"
)

// PayCallbackData is the inline-button action tag for the paid unlock.
const PayCallbackData = "pay_24h"

// expiryLayout is how the expiry is quoted back to the user.
const expiryLayout = "2006-01-02 15:04:05"

// Reply is what the gateway should send back for one inbound event. An empty
// Text means stay silent. OfferUnlock asks the adapter to attach the pay
// button.
type Reply struct {
	Text        string
	OfferUnlock bool
}

// BotFacade is the filter -> ledger -> audit -> reply pipeline, with its
// collaborators injected so tests can substitute doubles.
type BotFacade struct {
	filter usecase.FilterUseCase
	ledger usecase.LedgerUseCase
	gate   config.GateConfig
	log    *zerolog.Logger
}

func NewBotFacade(filter usecase.FilterUseCase, ledger usecase.LedgerUseCase, gate config.GateConfig, logger *zerolog.Logger) *BotFacade {
	return &BotFacade{filter: filter, ledger: ledger, gate: gate, log: logger}
}

// HandleStart answers /start. Outside the trial window it also forces the
// welcome reset (zeroed quota, cleared paid window) with its audit row.
func (b *BotFacade) HandleStart(ctx context.Context, userID int64, firstName string, now time.Time) (string, error) {
	if firstName == "" {
		firstName = "Anonymous"
	}
	if b.ledger.TrialActiveAt(now) {
		return fmt.Sprintf("👋 Welcome, %s!\n\n✨ You're in the FREE WEEK!\nTalk as much as you want — no limits.\n\nSomeone is waiting to hear your thoughts.", firstName), nil
	}
	if err := b.ledger.ResetWelcome(ctx, userID, now); err != nil {
		return "", fmt.Errorf("welcome reset: %w", err)
	}
	return fmt.Sprintf("👋 Welcome, %s!\n\n💬 You have %d free messages today.\nAfter that, pay ₹1 to unlock 24 hours of unlimited chatting.\n\nSomeone is waiting to hear your thoughts.", firstName, b.gate.FreeDailyLimit), nil
}

// HandleText runs one text message through the whole pipeline.
func (b *BotFacade) HandleText(ctx context.Context, userID int64, text string, now time.Time) (Reply, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		// Malformed input is silently ignored.
		return Reply{}, nil
	}

	switch b.filter.Classify(trimmed) {
	case model.TooShort:
		metrics.IncMessageRejected("too_short")
		return Reply{Text: "Please type at least 3 words so we can match you meaningfully. 😊"}, nil
	case model.Blocked:
		metrics.IncMessageRejected("blocked")
		if err := b.ledger.RecordBlocked(ctx, userID, now); err != nil {
			b.log.Error().Err(err).Int64("tg_id", userID).Msg("record blocked failed")
		}
		return Reply{Text: "🚫 This content isn't allowed here. Keep our space safe. ❤️"}, nil
	}

	decision, err := b.ledger.Evaluate(ctx, userID, now)
	if err != nil {
		return Reply{}, fmt.Errorf("evaluate: %w", err)
	}

	switch decision {
	case model.PaidActive:
		metrics.IncMessageAccepted(decision.String())
		return Reply{Text: "✅ You have 24-hour unlimited access. Talk freely."}, nil
	case model.TrialActive:
		metrics.IncMessageAccepted(decision.String())
		return Reply{Text: "💬 You're in the free week — talk as much as you want!"}, nil
	case model.QuotaAvailable:
		metrics.IncMessageAccepted(decision.String())
		return Reply{Text: "💬 Message sent. Someone is listening."}, nil
	case model.QuotaExhausted:
		metrics.IncQuotaExhausted()
		return Reply{
			Text:        fmt.Sprintf("⚠️ You've used your %d free messages today.\n\nPay ₹1 to unlock 24 hours of unlimited chatting — no limits.\n\nThis is your quiet escape.", b.gate.FreeDailyLimit),
			OfferUnlock: true,
		}, nil
	default:
		return Reply{}, fmt.Errorf("unexpected decision %v", decision)
	}
}

// PayButton is the inline affordance attached to quota-exhausted replies.
func (b *BotFacade) PayButton() adapter.InlineButton {
	return adapter.InlineButton{Text: "💰 Pay ₹1 for 24 Hours Unlimited", Data: PayCallbackData}
}

// HandlePayCallback builds the invoice for the pay_24h button press.
func (b *BotFacade) HandlePayCallback(userID int64) adapter.Invoice {
	metrics.IncPayment("invoiced")
	return adapter.Invoice{
		Title:       "Unlock 24 Hours of Unlimited Chatting",
		Description: "Pay ₹1 to get 24 continuous hours of unlimited anonymous texting.",
		Payload:     fmt.Sprintf("24h_access_%d", userID),
		Currency:    b.gate.Currency,
		PriceLabel:  "₹1 for 24h",
		Amount:      b.gate.UnlockAmount,
	}
}

// HandlePreCheckout approves every pre-checkout query; amount validation is
// the payment provider's job, not ours.
func (b *BotFacade) HandlePreCheckout() (bool, string) {
	return true, "Payment failed. Try again."
}

// HandlePaymentCompleted grants the paid window and returns the confirmation.
func (b *BotFacade) HandlePaymentCompleted(ctx context.Context, userID int64, now time.Time) (string, error) {
	expiresAt, err := b.ledger.CompletePayment(ctx, userID, now)
	if err != nil {
		return "", fmt.Errorf("complete payment: %w", err)
	}
	metrics.IncPayment("completed")
	return "🎉 Congratulations! You've unlocked 24 hours of unlimited chatting.\n\nSend any message to start talking.\nYour access expires at:\n" + expiresAt.Format(expiryLayout), nil
}
