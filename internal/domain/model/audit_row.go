package model

import "time"

// auditTimeLayout matches the timestamp format the spreadsheet has always
// carried; changing it would break the existing sheet.
const auditTimeLayout = "2006-01-02 15:04:05"

// AuditRow is one durable accounting event. Write-only: nothing in this
// system ever reads rows back.
type AuditRow struct {
	UserID       int64
	Date         string // ISO date, DayKey format
	MessagesUsed int
	PaidUnlock   bool
	PaidAt       *time.Time
	ExpiresAt    *time.Time
	Blocked      bool
}

// Values renders the row in spreadsheet column order:
// user id, date, messages used, paid flag, paid-at, expires-at, blocked flag.
// Optional timestamps become empty cells, booleans become "Yes"/"No".
func (r AuditRow) Values() []interface{} {
	return []interface{}{
		r.UserID,
		r.Date,
		r.MessagesUsed,
		yesNo(r.PaidUnlock),
		optTime(r.PaidAt),
		optTime(r.ExpiresAt),
		yesNo(r.Blocked),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func optTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(auditTimeLayout)
}
