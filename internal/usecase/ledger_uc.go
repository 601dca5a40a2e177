package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-chat-gate/internal/config"
	"telegram-chat-gate/internal/domain"
	"telegram-chat-gate/internal/domain/model"
	"telegram-chat-gate/internal/domain/ports/adapter"
	"telegram-chat-gate/internal/domain/ports/repository"
	"telegram-chat-gate/internal/infra/logging"
	"telegram-chat-gate/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase is the quota/trial/payment state machine. Every method that
// touches a record serializes per user through the Locker, because the
// read-modify-write on MessagesToday/PaidUntil is not atomic.
type LedgerUseCase interface {
	Evaluate(ctx context.Context, userID int64, now time.Time) (model.Decision, error)
	CompletePayment(ctx context.Context, userID int64, now time.Time) (time.Time, error)
	ResetWelcome(ctx context.Context, userID int64, now time.Time) error
	RecordBlocked(ctx context.Context, userID int64, now time.Time) error
	TrialActiveAt(now time.Time) bool
}

const lockTTL = 5 * time.Second

type ledgerUC struct {
	records    repository.UserRecordRepository
	audit      adapter.AuditSink
	locks      adapter.Locker
	trialEnd   time.Time
	freeLimit  int
	paidWindow time.Duration
	log        *zerolog.Logger
}

func NewLedgerUseCase(
	records repository.UserRecordRepository,
	audit adapter.AuditSink,
	locks adapter.Locker,
	gate config.GateConfig,
	logger *zerolog.Logger,
) *ledgerUC {
	return &ledgerUC{
		records:    records,
		audit:      audit,
		locks:      locks,
		trialEnd:   gate.TrialEndAt,
		freeLimit:  gate.FreeDailyLimit,
		paidWindow: gate.PaidWindow(),
		log:        logger,
	}
}

// TrialActiveAt reports whether the global trial window still covers now.
// The trial-end instant itself counts as ended (strict less-than).
func (l *ledgerUC) TrialActiveAt(now time.Time) bool {
	return now.Before(l.trialEnd)
}

// Evaluate decides how one accepted message is accounted for.
// Precedence: rollover first, then Paid > Trial > Quota. Paid beats trial so
// that a user who bought a window mid-trial keeps deterministic paid replies.
func (l *ledgerUC) Evaluate(ctx context.Context, userID int64, now time.Time) (model.Decision, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Evaluate")()

	unlock, err := l.lockUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	rec, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}

	if rec.NeedsRollover(now) {
		rec.Rollover()
		metrics.IncDailyReset()
		l.appendAudit(ctx, model.AuditRow{UserID: userID, Date: model.DayKey(now)})
	}

	if rec.PaidUntil != nil {
		if rec.HasActivePaid(now) {
			rec.Touch(now)
			if err := l.records.Save(ctx, rec); err != nil {
				return 0, fmt.Errorf("save record: %w", err)
			}
			return model.PaidActive, nil
		}
		// Expired windows are cleared before any further evaluation.
		rec.PaidUntil = nil
	}

	if l.TrialActiveAt(now) {
		rec.Touch(now)
		if err := l.records.Save(ctx, rec); err != nil {
			return 0, fmt.Errorf("save record: %w", err)
		}
		return model.TrialActive, nil
	}

	if rec.MessagesToday >= l.freeLimit {
		// No quota mutation; persist only what rollover may have changed.
		if err := l.records.Save(ctx, rec); err != nil {
			return 0, fmt.Errorf("save record: %w", err)
		}
		return model.QuotaExhausted, nil
	}

	rec.MessagesToday++
	rec.Touch(now)
	if err := l.records.Save(ctx, rec); err != nil {
		return 0, fmt.Errorf("save record: %w", err)
	}
	l.appendAudit(ctx, model.AuditRow{
		UserID:       userID,
		Date:         model.DayKey(now),
		MessagesUsed: rec.MessagesToday,
	})
	return model.QuotaAvailable, nil
}

// CompletePayment grants the paid window and returns its expiry. This is the
// only path that makes Evaluate return PaidActive.
func (l *ledgerUC) CompletePayment(ctx context.Context, userID int64, now time.Time) (time.Time, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.CompletePayment")()

	unlock, err := l.lockUser(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	defer unlock()

	rec, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}

	expiresAt := now.Add(l.paidWindow)
	rec.PaidUntil = &expiresAt
	rec.MessagesToday = 0
	if err := l.records.Save(ctx, rec); err != nil {
		return time.Time{}, fmt.Errorf("save record: %w", err)
	}

	paidAt := now
	l.appendAudit(ctx, model.AuditRow{
		UserID:     userID,
		Date:       model.DayKey(now),
		PaidUnlock: true,
		PaidAt:     &paidAt,
		ExpiresAt:  &expiresAt,
	})
	l.log.Info().Int64("tg_id", userID).Time("expires_at", expiresAt).Msg("paid window granted")
	return expiresAt, nil
}

// ResetWelcome forces a rollover-style reset on /start outside the trial
// window, independent of any date change.
func (l *ledgerUC) ResetWelcome(ctx context.Context, userID int64, now time.Time) error {
	defer logging.TraceDuration(l.log, "LedgerUC.ResetWelcome")()

	unlock, err := l.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	rec.Rollover()
	if err := l.records.Save(ctx, rec); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	metrics.IncDailyReset()
	l.appendAudit(ctx, model.AuditRow{UserID: userID, Date: model.DayKey(now)})
	return nil
}

// RecordBlocked appends the audit row for a denylist hit. The user record is
// not touched: blocked texts never consume quota.
func (l *ledgerUC) RecordBlocked(ctx context.Context, userID int64, now time.Time) error {
	l.appendAudit(ctx, model.AuditRow{
		UserID:  userID,
		Date:    model.DayKey(now),
		Blocked: true,
	})
	return nil
}

func (l *ledgerUC) loadOrCreate(ctx context.Context, userID int64) (*model.UserRecord, error) {
	rec, err := l.records.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.NewUserRecord(userID), nil
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return rec, nil
}

func (l *ledgerUC) lockUser(ctx context.Context, userID int64) (func(), error) {
	key := fmt.Sprintf("ledger:user:%d", userID)
	token, err := l.locks.TryLock(ctx, key, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}
	return func() {
		if err := l.locks.Unlock(ctx, key, token); err != nil {
			l.log.Warn().Err(err).Int64("tg_id", userID).Msg("unlock failed")
		}
	}, nil
}

// appendAudit is fire-and-forget: a sink failure is logged and counted, never
// retried and never surfaced to the user.
func (l *ledgerUC) appendAudit(ctx context.Context, row model.AuditRow) {
	if l.audit == nil {
		return
	}
	if err := l.audit.Append(ctx, row); err != nil {
		metrics.IncAuditAppendFailure()
		l.log.Error().Err(err).Int64("tg_id", row.UserID).Msg("audit append failed")
	}
}
