package domain

import "time"

// OTPRecord is one issued email verification code and its attempt window.
// Records are never deleted; IsUsed only ever flips from false to true.
type OTPRecord struct {
	ID                   string
	UserID               string
	Email                string
	Code                 string
	CreatedAt            time.Time
	ExpiresAt            time.Time
	VerificationAttempts int
	IsUsed               bool
	IsVerified           bool
	VerifiedAt           *time.Time
}

// Expired reports whether the code can no longer be accepted at now.
func (o *OTPRecord) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Remaining returns the time left before expiry, never negative.
func (o *OTPRecord) Remaining(now time.Time) time.Duration {
	if o.Expired(now) {
		return 0
	}
	return o.ExpiresAt.Sub(now)
}
