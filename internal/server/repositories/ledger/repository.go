// Package ledger declares the repository contract for the activity ledger,
// the sole source of truth for per-user inactivity state.
package ledger

import (
	"context"

	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// Repository provides access to activity records. All writes go through
// Update, which performs an optimistic compare-and-swap on the record
// version; implementations must return common.ErrVersionConflict when the
// expected version is stale so that "activity just confirmed" always wins
// over an in-flight stale notification decision.
type Repository interface {
	// Get returns the record for userID, or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*models.ActivityRecord, error)

	// ListActive returns all records eligible for evaluation: active users
	// whose vault is not yet revealed.
	ListActive(ctx context.Context) ([]*models.ActivityRecord, error)

	// Create inserts a new record with version 1.
	Create(ctx context.Context, rec *models.ActivityRecord) error

	// Update writes rec if the stored version equals expectedVersion, and
	// bumps the version. Returns common.ErrVersionConflict on a stale
	// version and common.ErrorNotFound if the record is absent.
	Update(ctx context.Context, rec *models.ActivityRecord, expectedVersion int64) error
}
