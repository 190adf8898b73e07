// Package tokens declares the repository contract for confirmation tokens:
// single-use, expiring, at most one live token per user.
package tokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// Repository manages confirmation tokens in persistent storage.
type Repository interface {
	// Replace deletes any outstanding tokens for userID and stores a new
	// one, enforcing the at-most-one-live-token rule. Callers wanting both
	// steps atomic run it inside a transaction.
	Replace(ctx context.Context, userID, token string, issuedAt, expiresAt time.Time) error

	// Redeem atomically consumes the token if it is live (not consumed, not
	// expired) and returns the owning user ID. Any failure — unknown token,
	// already consumed, or expired — is reported as common.ErrInvalidToken;
	// the causes are never distinguished. Under concurrent redemption of
	// the same token exactly one call succeeds.
	Redeem(ctx context.Context, token string, now time.Time) (string, error)

	// Find returns token metadata by its opaque string, or
	// common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.ConfirmationToken, error)

	// DeleteExpired removes tokens whose expiry passed before now and
	// returns how many were dropped. Consumed tokens are kept until expiry
	// so replays keep failing identically.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
