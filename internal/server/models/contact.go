package models

import "time"

// TrustedContact is a person the user designated to receive the vault
// disclosure. Only verified contacts are notified; Notified/NotifiedAt keep
// the disclosure idempotent per contact.
type TrustedContact struct {
	ID         string
	UserID     string
	Name       string
	Email      string
	Verified   bool
	Notified   bool
	NotifiedAt *time.Time
}
