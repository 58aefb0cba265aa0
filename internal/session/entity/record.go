package entity

import "time"

// Record is one issued refresh-token lineage. Its ID is embedded in the
// refresh token so a verifier can look the record up independently of the
// token signature.
type Record struct {
	ID        string    `db:"id"`
	AccountID int64     `db:"account_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the record is past its expiry at t.
func (r *Record) Expired(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}
