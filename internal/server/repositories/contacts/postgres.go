package contacts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/dbx"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// PostgresRepository implements trusted contact storage over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListVerified returns the verified contacts for userID.
func (r *PostgresRepository) ListVerified(ctx context.Context, userID string) ([]*models.TrustedContact, error) {
	query := `
		SELECT id, user_id, name, email, verified, notified, notified_at
		FROM trusted_contacts
		WHERE user_id = $1 AND verified
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.TrustedContact
	for rows.Next() {
		c := &models.TrustedContact{}
		var notifiedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email,
			&c.Verified, &c.Notified, &notifiedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if notifiedAt.Valid {
			t := notifiedAt.Time
			c.NotifiedAt = &t
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// MarkNotified sets the notified flag and timestamp for a contact.
func (r *PostgresRepository) MarkNotified(ctx context.Context, contactID string, at time.Time) error {
	query := `
		UPDATE trusted_contacts
		SET notified = TRUE, notified_at = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, contactID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
