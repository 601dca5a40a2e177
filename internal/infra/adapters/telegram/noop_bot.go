package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-chat-gate/internal/domain/ports/adapter"
)

var _ adapter.ChatGateway = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements the ChatGateway port for local/dev testing.
// It logs instead of calling Telegram.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	return &NoopBotAdapter{log: logger}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	b.log.Info().Int64("tg_id", tgID).Str("text", text).Msg("[noop-telegram] message")
	return nil
}

func (b *NoopBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	b.log.Info().Int64("tg_id", tgID).Str("text", text).Interface("rows", rows).Msg("[noop-telegram] buttons")
	return nil
}

func (b *NoopBotAdapter) SendInvoice(ctx context.Context, tgID int64, inv adapter.Invoice) error {
	b.log.Info().Int64("tg_id", tgID).Str("payload", inv.Payload).Msg("[noop-telegram] invoice")
	return nil
}

func (b *NoopBotAdapter) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errMessage string) error {
	b.log.Info().Str("query_id", queryID).Bool("ok", ok).Msg("[noop-telegram] precheckout")
	return nil
}
