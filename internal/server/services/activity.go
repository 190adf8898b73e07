// Package services contains the engine's business logic. This file implements
// ActivityService: issuing and redeeming confirmation tokens, recording
// activity signals, and user settings updates. Every path that touches the
// ledger goes through the optimistic version check so a confirmation racing a
// scheduler decision can never be lost.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/common"
	"github.com/dmitrijs2005/lifevault/internal/dbx"
	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/config"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lifevault/internal/timex"
	"github.com/sethvargo/go-retry"
)

const (
	minInactivityPeriodDays = 30
	maxInactivityPeriodDays = 730

	// casAttempts bounds retries of a ledger write that lost the version
	// race. Conflicts are rare (one scheduler, occasional user clicks), so a
	// couple of re-reads is plenty.
	casAttempts = 3
)

// ActivityService handles everything triggered by the user side of the
// engine: confirmation tokens, activity signals, and settings.
type ActivityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	clock       timex.Clock
	logger      logging.Logger
}

func NewActivityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, clock timex.Clock, log logging.Logger) *ActivityService {
	return &ActivityService{
		db:          db,
		repomanager: m,
		config:      cfg,
		clock:       clock,
		logger:      log.With("module", "activity_service"),
	}
}

// IssueToken mints a fresh confirmation token for the user and stores it,
// atomically invalidating any previously issued one. Returns the opaque token
// string to embed in the notification link.
func (s *ActivityService) IssueToken(ctx context.Context, userID string) (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", common.ErrorInternal
	}

	now := s.clock.Now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Tokens(tx).Replace(ctx, userID, token, now, now.Add(s.config.TokenTTL))
	})
	if err != nil {
		return "", fmt.Errorf("error issuing token: %w", err)
	}
	return token, nil
}

// RedeemToken consumes a confirmation token and resets the owner's
// inactivity cycle. Exactly one concurrent redemption of the same token can
// succeed; every failure mode surfaces as common.ErrInvalidToken so the
// response leaks nothing about why the token was rejected.
func (s *ActivityService) RedeemToken(ctx context.Context, token string) (string, error) {
	var userID string

	// The whole transaction is retried on a version conflict: the token is
	// consumed and the ledger reset together, so a rollback puts the token
	// back for the next attempt.
	backoff := retry.WithMaxRetries(casAttempts, retry.NewFibonacci(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.retryOnConflict(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			uid, err := s.repomanager.Tokens(tx).Redeem(ctx, token, s.clock.Now())
			if err != nil {
				return err
			}
			userID = uid
			return s.resetCycle(ctx, tx, uid, "confirmation token redeemed")
		}))
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return "", common.ErrInvalidToken
		}
		s.logger.Error(ctx, "token redemption failed", "error", err.Error())
		return "", common.ErrorInternal
	}

	s.logger.Info(ctx, "activity confirmed via token", "user", userID)
	return userID, nil
}

// RecordActivity registers a direct activity signal (a login forwarded by the
// vault application) and resets the user's inactivity cycle.
func (s *ActivityService) RecordActivity(ctx context.Context, userID string) error {
	backoff := retry.WithMaxRetries(casAttempts, retry.NewFibonacci(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.retryOnConflict(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return s.resetCycle(ctx, tx, userID, "login activity")
		}))
	})
	if err != nil {
		return fmt.Errorf("error recording activity: %w", err)
	}
	return nil
}

// UpdateSettings changes the user's inactivity period. The new period takes
// effect at the next evaluation; notification markers are kept, so shortening
// the period never re-fires warnings already sent this cycle.
func (s *ActivityService) UpdateSettings(ctx context.Context, userID string, periodDays int) error {
	if periodDays < minInactivityPeriodDays || periodDays > maxInactivityPeriodDays {
		return common.ErrInvalidSettings
	}

	backoff := retry.WithMaxRetries(casAttempts, retry.NewFibonacci(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.retryOnConflict(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			rec, err := s.repomanager.Ledger(tx).Get(ctx, userID)
			if err != nil {
				return err
			}
			old := rec.InactivityPeriodDays
			rec.InactivityPeriodDays = periodDays
			if err := s.repomanager.Ledger(tx).Update(ctx, rec, rec.Version); err != nil {
				return err
			}
			s.audit(ctx, tx, userID, models.ActionSettingsUpdated,
				fmt.Sprintf("inactivity period changed from %d to %d days", old, periodDays))
			return nil
		}))
	})
	if err != nil {
		return fmt.Errorf("error updating settings: %w", err)
	}
	return nil
}

// SimulateInactivity backdates the user's last activity by the given number
// of days. Demo tooling only; the HTTP layer refuses to expose it unless demo
// endpoints are enabled.
func (s *ActivityService) SimulateInactivity(ctx context.Context, userID string, days int) error {
	if days < 0 {
		return common.ErrInvalidSettings
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := s.repomanager.Ledger(tx).Get(ctx, userID)
		if err != nil {
			return err
		}
		rec.LastActivityAt = s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
		rec.StageLastSent = map[string]time.Time{}
		return s.repomanager.Ledger(tx).Update(ctx, rec, rec.Version)
	})
	if err != nil {
		return fmt.Errorf("error simulating inactivity: %w", err)
	}
	s.logger.Warn(ctx, "inactivity simulated", "user", userID, "days", days)
	return nil
}

// AuditTrail returns the newest audit entries for a user.
func (s *ActivityService) AuditTrail(ctx context.Context, userID string, limit int) ([]*models.ActivityLog, error) {
	return s.repomanager.ActivityLog(s.db).ListByUser(ctx, userID, limit)
}

// resetCycle reloads the record inside tx, restarts its cycle, and writes it
// back under the version it read.
func (s *ActivityService) resetCycle(ctx context.Context, tx dbx.DBTX, userID, reason string) error {
	rec, err := s.repomanager.Ledger(tx).Get(ctx, userID)
	if err != nil {
		return err
	}
	rec.ResetCycle(s.clock.Now())
	if err := s.repomanager.Ledger(tx).Update(ctx, rec, rec.Version); err != nil {
		return err
	}
	s.audit(ctx, tx, userID, models.ActionActivityConfirmed, reason)
	return nil
}

// retryOnConflict marks version conflicts as retryable for go-retry and
// passes everything else through terminally.
func (s *ActivityService) retryOnConflict(err error) error {
	if errors.Is(err, common.ErrVersionConflict) {
		return retry.RetryableError(err)
	}
	return err
}

// audit appends an audit row, logging but never failing the surrounding
// operation.
func (s *ActivityService) audit(ctx context.Context, tx dbx.DBTX, userID, action, details string) {
	entry := &models.ActivityLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repomanager.ActivityLog(tx).Append(ctx, entry); err != nil {
		s.logger.Warn(ctx, "audit append failed", "user", userID, "action", action, "error", err.Error())
	}
}
