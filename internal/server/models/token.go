package models

import "time"

// ConfirmationToken is a single-use, expiring token mailed to a user so one
// click can confirm they are still active. At most one live token exists per
// user; issuing a new one invalidates any predecessor.
type ConfirmationToken struct {
	ID         string
	UserID     string
	Token      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}
