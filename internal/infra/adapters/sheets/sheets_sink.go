package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"telegram-chat-gate/internal/domain/model"
	"telegram-chat-gate/internal/domain/ports/adapter"
)

var _ adapter.AuditSink = (*Sink)(nil)

// Sink appends audit rows to a Google Sheets worksheet, one row per
// accounting event. Append-only; nothing here ever reads the sheet back.
type Sink struct {
	svc           *sheets.Service
	spreadsheetID string
	appendRange   string
	log           *zerolog.Logger
}

// NewSink builds the sheets client from a service-account credential that
// has already been schema-validated by config.
func NewSink(ctx context.Context, credentialsJSON []byte, spreadsheetID, sheet string, logger *zerolog.Logger) (*Sink, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	sinkLog := logger.With().Str("component", "sheets").Logger()
	return &Sink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		appendRange:   sheet + "!A:G",
		log:           &sinkLog,
	}, nil
}

func (s *Sink) Append(ctx context.Context, row model.AuditRow) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row.Values()}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.appendRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}
	s.log.Debug().Int64("tg_id", row.UserID).Bool("blocked", row.Blocked).Msg("audit row appended")
	return nil
}
