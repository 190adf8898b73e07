// Package assets declares the read-only repository the disclosure path uses
// to snapshot a user's asset descriptions. Asset entry is the vault UI's job.
package assets

import (
	"context"

	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

type Repository interface {
	// ListByUser returns all asset descriptions recorded by the user.
	ListByUser(ctx context.Context, userID string) ([]*models.Asset, error)
}
