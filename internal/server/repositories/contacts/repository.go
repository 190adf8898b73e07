// Package contacts declares the repository contract for trusted contacts,
// the recipients of the vault disclosure.
package contacts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// Repository provides the read/mark path the disclosure gate needs.
// Contact entry and verification belong to the vault UI.
type Repository interface {
	// ListVerified returns the user's verified contacts, notified or not.
	ListVerified(ctx context.Context, userID string) ([]*models.TrustedContact, error)

	// MarkNotified records that the disclosure email for this contact was
	// dispatched, so a retried disclosure skips them.
	MarkNotified(ctx context.Context, contactID string, at time.Time) error
}
