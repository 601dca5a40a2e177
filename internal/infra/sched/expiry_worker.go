package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-chat-gate/internal/domain/ports/adapter"
	"telegram-chat-gate/internal/domain/ports/repository"
)

const expiredNotice = "⏰ Your 24-hour unlimited access has expired. You're back on the free plan."

// ExpiryWorker periodically clears paid access that has lapsed and tells the
// affected users. The message path checks expiry on its own; the worker keeps
// stored records honest and delivers the heads-up.
type ExpiryWorker struct {
	records  repository.UserRecordRepository
	gateway  adapter.ChatGateway
	interval time.Duration
	log      *zerolog.Logger
}

func NewExpiryWorker(records repository.UserRecordRepository, gateway adapter.ChatGateway, interval time.Duration, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "expiry_worker").Logger()
	return &ExpiryWorker{records: records, gateway: gateway, interval: interval, log: &l}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("expiry worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ids, err := w.records.PurgeExpiredPaid(sweepCtx, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("failed to purge expired paid access")
		return
	}
	if len(ids) == 0 {
		return
	}
	w.log.Info().Int("purged", len(ids)).Msg("cleared expired paid access")

	if w.gateway == nil {
		return
	}
	for _, id := range ids {
		if err := w.gateway.SendMessage(sweepCtx, id, expiredNotice); err != nil {
			w.log.Warn().Err(err).Int64("tg_id", id).Msg("expiry notice not delivered")
		}
	}
}
