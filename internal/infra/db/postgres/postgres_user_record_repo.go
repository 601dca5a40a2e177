package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-chat-gate/internal/domain"
	"telegram-chat-gate/internal/domain/model"
	"telegram-chat-gate/internal/domain/ports/repository"
)

var _ repository.UserRecordRepository = (*PostgresUserRecordRepo)(nil)

// PostgresUserRecordRepo persists per-user accounting records.
//
// Schema:
//
//	CREATE TABLE user_records (
//	  user_id         BIGINT PRIMARY KEY,
//	  messages_today  INT NOT NULL DEFAULT 0,
//	  paid_until      TIMESTAMPTZ,
//	  last_message_at TIMESTAMPTZ
//	);
type PostgresUserRecordRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRecordRepo(pool *pgxpool.Pool) *PostgresUserRecordRepo {
	return &PostgresUserRecordRepo{pool: pool}
}

func (r *PostgresUserRecordRepo) Find(ctx context.Context, userID int64) (*model.UserRecord, error) {
	const q = `
SELECT user_id, messages_today, paid_until, last_message_at
  FROM user_records WHERE user_id=$1;
`
	var rec model.UserRecord
	err := r.pool.QueryRow(ctx, q, userID).Scan(&rec.UserID, &rec.MessagesToday, &rec.PaidUntil, &rec.LastMessageAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user record: %w", err)
	}
	return &rec, nil
}

func (r *PostgresUserRecordRepo) Save(ctx context.Context, rec *model.UserRecord) error {
	const q = `
INSERT INTO user_records (user_id, messages_today, paid_until, last_message_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id) DO UPDATE SET
  messages_today=$2, paid_until=$3, last_message_at=$4;
`
	_, err := r.pool.Exec(ctx, q, rec.UserID, rec.MessagesToday, rec.PaidUntil, rec.LastMessageAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("save user record (sqlstate %s): %w", pgErr.Code, err)
		}
		return fmt.Errorf("save user record: %w", err)
	}
	return nil
}

func (r *PostgresUserRecordRepo) PurgeExpiredPaid(ctx context.Context, now time.Time) ([]int64, error) {
	const q = `
UPDATE user_records SET paid_until=NULL
 WHERE paid_until IS NOT NULL AND paid_until <= $1
RETURNING user_id;
`
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("purge expired paid windows: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("purge expired paid windows: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purge expired paid windows: %w", err)
	}
	return ids, nil
}
