package usecase

import (
	"context"
	"testing"
	"time"

	"telegram-chat-gate/internal/config"
	"telegram-chat-gate/internal/domain/model"
)

var trialEnd = time.Date(2025, 9, 25, 23, 59, 59, 0, time.UTC)

func newTestLedger(repo *memRecordRepo, sink *recordingSink) *ledgerUC {
	gate := config.GateConfig{
		FreeDailyLimit:  5,
		PaidWindowHours: 24,
		TrialEndAt:      trialEnd,
	}
	return NewLedgerUseCase(repo, sink, noopLocker{}, gate, newTestLogger())
}

func TestLedgerEvaluate_Trial(t *testing.T) {
	ctx := context.Background()
	repo := newMemRecordRepo()
	sink := &recordingSink{}
	uc := newTestLedger(repo, sink)

	inTrial := trialEnd.Add(-48 * time.Hour)

	t.Run("every message during trial is TrialActive and never touches quota", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			d, err := uc.Evaluate(ctx, 100, inTrial.Add(time.Duration(i)*time.Minute))
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if d != model.TrialActive {
				t.Fatalf("expected TrialActive, got %v", d)
			}
		}
		rec, err := repo.Find(ctx, 100)
		if err != nil {
			t.Fatalf("record should have been lazily created: %v", err)
		}
		if rec.MessagesToday != 0 {
			t.Errorf("trial messages must not consume quota, got MessagesToday=%d", rec.MessagesToday)
		}
		if len(sink.Rows()) != 0 {
			t.Errorf("trial messages must not append audit rows, got %d", len(sink.Rows()))
		}
	})

	t.Run("the trial-end instant itself counts as ended", func(t *testing.T) {
		d, err := uc.Evaluate(ctx, 101, trialEnd)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if d != model.QuotaAvailable {
			t.Errorf("expected QuotaAvailable at the boundary instant, got %v", d)
		}
	})
}

func TestLedgerEvaluate_Quota(t *testing.T) {
	ctx := context.Background()
	postTrial := trialEnd.Add(24 * time.Hour)

	t.Run("fifth message consumes the last free slot and is audited", func(t *testing.T) {
		repo := newMemRecordRepo()
		sink := &recordingSink{}
		uc := newTestLedger(repo, sink)

		rec := model.NewUserRecord(1)
		rec.MessagesToday = 4
		rec.Touch(postTrial.Add(-time.Hour))
		repo.Save(ctx, rec)

		d, err := uc.Evaluate(ctx, 1, postTrial)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if d != model.QuotaAvailable {
			t.Fatalf("expected QuotaAvailable, got %v", d)
		}
		got, _ := repo.Find(ctx, 1)
		if got.MessagesToday != 5 {
			t.Errorf("expected MessagesToday=5, got %d", got.MessagesToday)
		}
		rows := sink.Rows()
		if len(rows) != 1 {
			t.Fatalf("expected exactly one audit row, got %d", len(rows))
		}
		if rows[0].MessagesUsed != 5 || rows[0].PaidUnlock || rows[0].Blocked {
			t.Errorf("unexpected audit row: %+v", rows[0])
		}
	})

	t.Run("sixth message is refused without mutation", func(t *testing.T) {
		repo := newMemRecordRepo()
		sink := &recordingSink{}
		uc := newTestLedger(repo, sink)

		rec := model.NewUserRecord(1)
		rec.MessagesToday = 5
		rec.Touch(postTrial.Add(-time.Hour))
		repo.Save(ctx, rec)

		d, err := uc.Evaluate(ctx, 1, postTrial)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if d != model.QuotaExhausted {
			t.Fatalf("expected QuotaExhausted, got %v", d)
		}
		got, _ := repo.Find(ctx, 1)
		if got.MessagesToday != 5 {
			t.Errorf("exhausted evaluation must not mutate quota, got %d", got.MessagesToday)
		}
		if len(sink.Rows()) != 0 {
			t.Errorf("exhausted evaluation must not append audit rows, got %d", len(sink.Rows()))
		}
	})
}

func TestLedgerEvaluate_Rollover(t *testing.T) {
	ctx := context.Background()
	repo := newMemRecordRepo()
	sink := &recordingSink{}
	uc := newTestLedger(repo, sink)

	yesterday := trialEnd.Add(24 * time.Hour)
	today := yesterday.Add(24 * time.Hour)

	rec := model.NewUserRecord(7)
	rec.MessagesToday = 5
	rec.Touch(yesterday)
	repo.Save(ctx, rec)

	d, err := uc.Evaluate(ctx, 7, today)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// Reset happens before the quota check, so the message goes through.
	if d != model.QuotaAvailable {
		t.Fatalf("expected QuotaAvailable after rollover, got %v", d)
	}
	got, _ := repo.Find(ctx, 7)
	if got.MessagesToday != 1 {
		t.Errorf("expected MessagesToday=1 after rollover+accept, got %d", got.MessagesToday)
	}

	rows := sink.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected reset row plus accept row, got %d rows", len(rows))
	}
	if rows[0].MessagesUsed != 0 || rows[0].PaidUnlock || rows[0].Blocked {
		t.Errorf("reset row should be zero-usage non-paid, got %+v", rows[0])
	}
	if rows[1].MessagesUsed != 1 {
		t.Errorf("accept row should carry the new count, got %+v", rows[1])
	}
}

func TestLedgerEvaluate_RolloverClearsPaid(t *testing.T) {
	ctx := context.Background()
	repo := newMemRecordRepo()
	sink := &recordingSink{}
	uc := newTestLedger(repo, sink)

	yesterday := trialEnd.Add(24 * time.Hour)
	today := yesterday.Add(24 * time.Hour)

	rec := model.NewUserRecord(8)
	paid := today.Add(6 * time.Hour) // would still be active without rollover
	rec.PaidUntil = &paid
	rec.Touch(yesterday)
	repo.Save(ctx, rec)

	d, err := uc.Evaluate(ctx, 8, today)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d != model.QuotaAvailable {
		t.Fatalf("rollover must clear the paid window first, got %v", d)
	}
	got, _ := repo.Find(ctx, 8)
	if got.PaidUntil != nil {
		t.Error("expected PaidUntil cleared by rollover")
	}
}

func TestLedgerPayment(t *testing.T) {
	ctx := context.Background()
	repo := newMemRecordRepo()
	sink := &recordingSink{}
	uc := newTestLedger(repo, sink)

	paidAt := trialEnd.Add(48 * time.Hour)

	expiry, err := uc.CompletePayment(ctx, 9, paidAt)
	if err != nil {
		t.Fatalf("CompletePayment failed: %v", err)
	}
	if want := paidAt.Add(24 * time.Hour); !expiry.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, expiry)
	}

	rows := sink.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected one payment audit row, got %d", len(rows))
	}
	if !rows[0].PaidUnlock || rows[0].PaidAt == nil || rows[0].ExpiresAt == nil {
		t.Errorf("payment row incomplete: %+v", rows[0])
	}

	t.Run("any evaluation before expiry is PaidActive", func(t *testing.T) {
		d, err := uc.Evaluate(ctx, 9, expiry.Add(-time.Second))
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if d != model.PaidActive {
			t.Errorf("expected PaidActive, got %v", d)
		}
		got, _ := repo.Find(ctx, 9)
		if got.MessagesToday != 0 {
			t.Errorf("paid messages must not consume quota, got %d", got.MessagesToday)
		}
	})

	t.Run("evaluation at the expiry instant clears the window", func(t *testing.T) {
		d, err := uc.Evaluate(ctx, 9, expiry)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if d != model.QuotaAvailable {
			t.Errorf("expected non-paid evaluation at expiry, got %v", d)
		}
		got, _ := repo.Find(ctx, 9)
		if got.PaidUntil != nil {
			t.Error("expected PaidUntil cleared once expired")
		}
	})

	t.Run("paid beats trial when both are active", func(t *testing.T) {
		inTrial := trialEnd.Add(-24 * time.Hour)
		if _, err := uc.CompletePayment(ctx, 10, inTrial); err != nil {
			t.Fatalf("CompletePayment failed: %v", err)
		}
		d, err := uc.Evaluate(ctx, 10, inTrial.Add(time.Hour))
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if d != model.PaidActive {
			t.Errorf("expected PaidActive to take precedence over TrialActive, got %v", d)
		}
	})
}

func TestLedgerResetWelcome(t *testing.T) {
	ctx := context.Background()
	repo := newMemRecordRepo()
	sink := &recordingSink{}
	uc := newTestLedger(repo, sink)

	now := trialEnd.Add(24 * time.Hour)
	rec := model.NewUserRecord(11)
	rec.MessagesToday = 3
	paid := now.Add(time.Hour)
	rec.PaidUntil = &paid
	rec.Touch(now.Add(-time.Minute)) // same day: the date rule alone would not reset
	repo.Save(ctx, rec)

	if err := uc.ResetWelcome(ctx, 11, now); err != nil {
		t.Fatalf("ResetWelcome failed: %v", err)
	}

	got, _ := repo.Find(ctx, 11)
	if got.MessagesToday != 0 || got.PaidUntil != nil {
		t.Errorf("expected zeroed quota and cleared paid window, got %+v", got)
	}
	rows := sink.Rows()
	if len(rows) != 1 || rows[0].MessagesUsed != 0 || rows[0].PaidUnlock {
		t.Errorf("expected one zero-usage audit row, got %+v", rows)
	}
}

func TestLedgerRecordBlocked(t *testing.T) {
	ctx := context.Background()
	repo := newMemRecordRepo()
	sink := &recordingSink{}
	uc := newTestLedger(repo, sink)

	now := trialEnd.Add(24 * time.Hour)
	if err := uc.RecordBlocked(ctx, 12, now); err != nil {
		t.Fatalf("RecordBlocked failed: %v", err)
	}
	rows := sink.Rows()
	if len(rows) != 1 || !rows[0].Blocked {
		t.Fatalf("expected one blocked audit row, got %+v", rows)
	}
	// Blocked texts never create or touch records.
	if _, err := repo.Find(ctx, 12); err == nil {
		t.Error("blocked message must not create a user record")
	}
}

func TestLedgerAuditFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	repo := newMemRecordRepo()
	sink := &recordingSink{appendErr: context.DeadlineExceeded}
	uc := newTestLedger(repo, sink)

	d, err := uc.Evaluate(ctx, 13, trialEnd.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("audit failure must not fail the evaluation: %v", err)
	}
	if d != model.QuotaAvailable {
		t.Fatalf("expected QuotaAvailable, got %v", d)
	}
	got, _ := repo.Find(ctx, 13)
	if got.MessagesToday != 1 {
		t.Errorf("state change must persist despite audit failure, got %d", got.MessagesToday)
	}
}
