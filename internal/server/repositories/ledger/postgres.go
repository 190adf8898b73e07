package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/common"
	"github.com/dmitrijs2005/lifevault/internal/dbx"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// PostgresRepository implements the ledger over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanRecord(scan func(dest ...any) error) (*models.ActivityRecord, error) {
	rec := &models.ActivityRecord{}
	var stageJSON []byte
	var revealedAt sql.NullTime
	err := scan(&rec.UserID, &rec.Email, &rec.Name, &rec.LastActivityAt,
		&rec.InactivityPeriodDays, &stageJSON, &rec.Revealed, &revealedAt,
		&rec.Active, &rec.Version)
	if err != nil {
		return nil, err
	}
	if revealedAt.Valid {
		t := revealedAt.Time
		rec.RevealedAt = &t
	}
	rec.StageLastSent = map[string]time.Time{}
	if len(stageJSON) > 0 {
		if err := json.Unmarshal(stageJSON, &rec.StageLastSent); err != nil {
			return nil, fmt.Errorf("decoding stage_last_sent: %w", err)
		}
	}
	return rec, nil
}

const recordColumns = `user_id, email, name, last_activity_at, inactivity_period_days,
		stage_last_sent, revealed, revealed_at, active, version`

// Get returns the activity record for userID.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.ActivityRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM activity_records
		WHERE user_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, userID)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// ListActive returns records for active users whose vault is not revealed.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.ActivityRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM activity_records
		WHERE active AND NOT revealed
		ORDER BY user_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var records []*models.ActivityRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}

// Create inserts a new record with version 1.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.ActivityRecord) error {
	stageJSON, err := json.Marshal(rec.StageLastSent)
	if err != nil {
		return fmt.Errorf("encoding stage_last_sent: %w", err)
	}
	query := `
		INSERT INTO activity_records
			(user_id, email, name, last_activity_at, inactivity_period_days,
			 stage_last_sent, revealed, revealed_at, active, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.UserID, rec.Email, rec.Name,
		rec.LastActivityAt, rec.InactivityPeriodDays, stageJSON,
		rec.Revealed, nullableTime(rec.RevealedAt), rec.Active); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rec.Version = 1
	return nil
}

// Update performs the compare-and-swap write. The WHERE clause on version is
// the per-row serialization primitive shared by the scheduler, the token
// service and the login signal.
func (r *PostgresRepository) Update(ctx context.Context, rec *models.ActivityRecord, expectedVersion int64) error {
	stageJSON, err := json.Marshal(rec.StageLastSent)
	if err != nil {
		return fmt.Errorf("encoding stage_last_sent: %w", err)
	}
	query := `
		UPDATE activity_records
		SET email = $2, name = $3, last_activity_at = $4,
			inactivity_period_days = $5, stage_last_sent = $6,
			revealed = $7, revealed_at = $8, active = $9,
			version = version + 1
		WHERE user_id = $1 AND version = $10
	`
	res, err := r.db.ExecContext(ctx, query, rec.UserID, rec.Email, rec.Name,
		rec.LastActivityAt, rec.InactivityPeriodDays, stageJSON,
		rec.Revealed, nullableTime(rec.RevealedAt), rec.Active, expectedVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or somebody got there first.
		if _, err := r.Get(ctx, rec.UserID); err != nil {
			return err
		}
		return common.ErrVersionConflict
	}
	rec.Version = expectedVersion + 1
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
