package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-chat-gate/internal/application"
	"telegram-chat-gate/internal/config"
	"telegram-chat-gate/internal/domain/ports/adapter"
	"telegram-chat-gate/internal/infra/logging"
	"telegram-chat-gate/internal/infra/metrics"
	red "telegram-chat-gate/internal/infra/redis"
)

var _ adapter.ChatGateway = (*RealBotAdapter)(nil)

// RealBotAdapter polls Telegram updates and delegates to the BotFacade.
// Every update is handled in a worker; a failing update is logged and
// dropped so one bad event never takes the service down.
type RealBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealBotAdapter(cfg *config.BotConfig, facade *application.BotFacade, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	botLog := logger.With().Str("component", "telegram").Logger()
	return &RealBotAdapter{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		rateLimiter:   rateLimiter,
		log:           &botLog,
		updateWorkers: workers,
	}, nil
}

func (r *RealBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("update failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())

	if update.PreCheckoutQuery != nil {
		return r.handlePreCheckout(ctx, update.PreCheckoutQuery)
	}
	if update.CallbackQuery != nil {
		return r.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	msg := update.Message
	userID := msg.From.ID

	if msg.SuccessfulPayment != nil {
		metrics.IncUpdateReceived("payment")
		text, err := r.facade.HandlePaymentCompleted(ctx, userID, time.Now())
		if err != nil {
			return err
		}
		return r.SendMessage(ctx, msg.Chat.ID, text)
	}

	if !r.allow(ctx, userID, commandOf(msg)) {
		return r.SendMessage(ctx, msg.Chat.ID, "Rate limit exceeded. Please try again later.")
	}

	if msg.IsCommand() && msg.Command() == "start" {
		metrics.IncUpdateReceived("start")
		text, err := r.facade.HandleStart(ctx, userID, msg.From.FirstName, time.Now())
		if err != nil {
			return err
		}
		return r.SendMessage(ctx, msg.Chat.ID, text)
	}

	metrics.IncUpdateReceived("text")
	reply, err := r.facade.HandleText(ctx, userID, msg.Text, time.Now())
	if err != nil {
		return err
	}
	if reply.Text == "" {
		return nil
	}
	if reply.OfferUnlock {
		rows := [][]adapter.InlineButton{{r.facade.PayButton()}}
		return r.SendButtons(ctx, msg.Chat.ID, reply.Text, rows)
	}
	return r.SendMessage(ctx, msg.Chat.ID, reply.Text)
}

func (r *RealBotAdapter) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}
	if strings.TrimSpace(query.Data) != application.PayCallbackData {
		// Stop the telegram spinner even for unknown callbacks.
		_, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, ""))
		return nil
	}
	metrics.IncUpdateReceived("callback")

	if _, err := r.bot.Request(tgbotapi.NewCallback(query.ID, "Processing payment...")); err != nil {
		r.log.Warn().Err(err).Msg("answer callback failed")
	}

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	return r.SendInvoice(ctx, chatID, r.facade.HandlePayCallback(query.From.ID))
}

func (r *RealBotAdapter) handlePreCheckout(ctx context.Context, query *tgbotapi.PreCheckoutQuery) error {
	metrics.IncUpdateReceived("precheckout")
	ok, errMsg := r.facade.HandlePreCheckout()
	return r.AnswerPreCheckout(ctx, query.ID, ok, errMsg)
}

// SendMessage implements the ChatGateway port over tgbotapi.
func (r *RealBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := r.bot.Send(msg)
	return err
}

// SendButtons sends a message with inline buttons.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (r *RealBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			var kb tgbotapi.InlineKeyboardButton
			switch {
			case btn.URL != "":
				kb = tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL)
			case btn.Data != "":
				kb = tgbotapi.NewInlineKeyboardButtonData(label, btn.Data)
			default:
				kb = tgbotapi.NewInlineKeyboardButtonData(label, label)
			}
			kbRow = append(kbRow, kb)
		}
		kbRows = append(kbRows, kbRow)
	}

	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	_, err := r.bot.Send(msg)
	return err
}

// SendInvoice creates the paid-unlock invoice.
func (r *RealBotAdapter) SendInvoice(ctx context.Context, tgID int64, inv adapter.Invoice) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	prices := []tgbotapi.LabeledPrice{{Label: inv.PriceLabel, Amount: inv.Amount}}
	invoice := tgbotapi.NewInvoice(tgID, inv.Title, inv.Description, inv.Payload,
		r.cfg.ProviderToken, "", inv.Currency, prices)
	_, err := r.bot.Request(invoice)
	return err
}

// AnswerPreCheckout approves or rejects a pre-checkout query.
func (r *RealBotAdapter) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errMessage string) error {
	pca := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
	}
	if !ok {
		pca.ErrorMessage = errMessage
	}
	_, err := r.bot.Request(pca)
	return err
}

func (r *RealBotAdapter) allow(ctx context.Context, userID int64, command string) bool {
	if r.rateLimiter == nil {
		return true
	}
	allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(userID, command), 20, time.Minute)
	if err != nil {
		r.log.Warn().Err(err).Msg("rate limit check failed")
		return true
	}
	if !allowed {
		metrics.IncRateLimitTriggered()
	}
	return allowed
}

func commandOf(msg *tgbotapi.Message) string {
	fields := strings.Fields(msg.Text)
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		return fields[0]
	}
	return "message"
}
