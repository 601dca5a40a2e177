package adapter

import (
	"context"

	"telegram-chat-gate/internal/domain/model"
)

// AuditSink appends one row per accounting event to the durable log.
// Fire-and-forget from the ledger's perspective: failures are logged and
// counted by the caller, never retried and never shown to the user.
type AuditSink interface {
	Append(ctx context.Context, row model.AuditRow) error
}
