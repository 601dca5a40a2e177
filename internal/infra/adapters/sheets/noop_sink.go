package sheets

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-chat-gate/internal/domain/model"
	"telegram-chat-gate/internal/domain/ports/adapter"
)

var _ adapter.AuditSink = (*NoopSink)(nil)

// NoopSink logs rows instead of writing to a spreadsheet. Used in dev when
// no spreadsheet is configured.
type NoopSink struct {
	log *zerolog.Logger
}

func NewNoopSink(logger *zerolog.Logger) *NoopSink {
	return &NoopSink{log: logger}
}

func (s *NoopSink) Append(ctx context.Context, row model.AuditRow) error {
	s.log.Info().Interface("row", row.Values()).Msg("[noop-audit] row")
	return nil
}
