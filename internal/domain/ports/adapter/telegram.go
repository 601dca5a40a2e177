package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Invoice describes a paid-unlock invoice. Payload is the opaque string the
// gateway echoes back on payment completion.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	PriceLabel  string
	Amount      int // smallest currency unit
}

// ChatGateway is the outbound side of the messaging platform.
type ChatGateway interface {
	SendMessage(ctx context.Context, telegramID int64, text string) error
	SendButtons(ctx context.Context, telegramID int64, text string, rows [][]InlineButton) error
	SendInvoice(ctx context.Context, telegramID int64, inv Invoice) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errMessage string) error
}
