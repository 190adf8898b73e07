// Package activitylog declares the append-only audit trail of engine
// actions: notifications sent, activity confirmations, disclosures.
package activitylog

import (
	"context"

	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

type Repository interface {
	// Append stores one audit row. Failures here must never abort the
	// operation being audited; callers log and continue.
	Append(ctx context.Context, entry *models.ActivityLog) error

	// ListByUser returns the newest audit rows for a user, most recent
	// first, up to limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.ActivityLog, error)
}
