package models

import "time"

// Audit actions recorded by the engine.
const (
	ActionInactivityCheck   = "INACTIVITY_CHECK"
	ActionNotificationSent  = "NOTIFICATION_SENT"
	ActionVaultRevealed     = "VAULT_REVEALED"
	ActionSettingsUpdated   = "SETTINGS_UPDATED"
	ActionActivityConfirmed = "ACTIVITY_CONFIRMED"
)

// ActivityLog is an append-only audit row describing something the engine
// did on a user's behalf.
type ActivityLog struct {
	ID        string
	UserID    string
	Action    string
	Details   string
	CreatedAt time.Time
}
