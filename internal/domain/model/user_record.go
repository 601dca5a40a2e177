package model

import "time"

// UserRecord is the per-user accounting state behind the access ledger.
// A record exists only after the user's first observed event; a missing
// record is equivalent to the zero value with the right UserID.
type UserRecord struct {
	UserID        int64
	MessagesToday int
	PaidUntil     *time.Time
	LastMessageAt *time.Time
}

func NewUserRecord(userID int64) *UserRecord {
	return &UserRecord{UserID: userID}
}

// HasActivePaid reports whether a paid window covers now.
// The expiry instant itself counts as expired (strict less-than).
func (r *UserRecord) HasActivePaid(now time.Time) bool {
	return r.PaidUntil != nil && now.Before(*r.PaidUntil)
}

// NeedsRollover reports whether the calendar date has changed since the
// last accepted message.
func (r *UserRecord) NeedsRollover(now time.Time) bool {
	return r.LastMessageAt != nil && DayKey(*r.LastMessageAt) != DayKey(now)
}

// Rollover zeroes the daily counter and clears any paid window.
func (r *UserRecord) Rollover() {
	r.MessagesToday = 0
	r.PaidUntil = nil
}

// Touch records the time of an accepted message.
func (r *UserRecord) Touch(now time.Time) {
	t := now
	r.LastMessageAt = &t
}

// DayKey formats a timestamp as its ISO calendar date, in the timestamp's
// own location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
