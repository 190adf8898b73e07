package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/common"
	"github.com/dmitrijs2005/lifevault/internal/dbx"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// PostgresRepository implements confirmation token storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Replace drops any prior tokens for the user and inserts the new one.
func (r *PostgresRepository) Replace(ctx context.Context, userID, token string, issuedAt, expiresAt time.Time) error {
	delQuery := `
		DELETE FROM confirmation_tokens
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, delQuery, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	insQuery := `
		INSERT INTO confirmation_tokens (user_id, token, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, insQuery, userID, token, issuedAt, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Redeem consumes a live token. The conditional UPDATE is the concurrency
// guard: a double-submitted link makes two calls race on the same row and
// only the first one matches consumed_at IS NULL.
func (r *PostgresRepository) Redeem(ctx context.Context, token string, now time.Time) (string, error) {
	query := `
		UPDATE confirmation_tokens
		SET consumed_at = $2
		WHERE token = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING user_id
	`
	var userID string
	if err := r.db.QueryRowContext(ctx, query, token, now).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return userID, nil
}

// Find returns the token row for the given token string.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.ConfirmationToken, error) {
	query := `
		SELECT id, user_id, token, issued_at, expires_at, consumed_at
		FROM confirmation_tokens
		WHERE token = $1
	`
	ct := &models.ConfirmationToken{}
	var consumedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&ct.ID, &ct.UserID, &ct.Token, &ct.IssuedAt, &ct.ExpiresAt, &consumedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if consumedAt.Valid {
		t := consumedAt.Time
		ct.ConsumedAt = &t
	}
	return ct, nil
}

// DeleteExpired prunes tokens whose expiry passed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM confirmation_tokens
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
