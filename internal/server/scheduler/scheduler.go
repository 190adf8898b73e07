// Package scheduler drives the periodic evaluation of the activity ledger.
// Each tick loads every active, unrevealed record, fans the records out to a
// bounded worker pool, and lets the pure escalation rules decide per user
// whether a notification or the disclosure is due.
//
// Dispatch is recorded only after the notifier acknowledges it, and the
// record write is an optimistic compare-and-swap. A conflict means the user
// confirmed activity while the decision was in flight; the stale decision is
// abandoned without retry, because at-least-once delivery makes a duplicate
// email harmless while a lost "user is active" signal is not.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/common"
	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/config"
	"github.com/dmitrijs2005/lifevault/internal/server/escalation"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
	"github.com/dmitrijs2005/lifevault/internal/server/notify"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lifevault/internal/timex"
	"github.com/robfig/cron/v3"
)

// TokenIssuer mints a fresh confirmation token for a user so the activity
// check email can carry a one-click link.
type TokenIssuer interface {
	IssueToken(ctx context.Context, userID string) (string, error)
}

// Revealer crosses the disclosure gate for an expired record. Success means
// every pending trusted contact was dispatched.
type Revealer interface {
	Reveal(ctx context.Context, rec *models.ActivityRecord) error
}

// Scheduler owns the cron-driven evaluation loop.
type Scheduler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	issuer      TokenIssuer
	revealer    Revealer
	notifier    notify.Notifier
	clock       timex.Clock
	logger      logging.Logger
	cron        *cron.Cron
	tickCtx     context.Context
	tickCancel  context.CancelFunc
}

func NewScheduler(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	issuer TokenIssuer, revealer Revealer, n notify.Notifier,
	clock timex.Clock, log logging.Logger) *Scheduler {
	return &Scheduler{
		db:          db,
		repomanager: m,
		config:      cfg,
		issuer:      issuer,
		revealer:    revealer,
		notifier:    n,
		clock:       clock,
		logger:      log.With("module", "scheduler"),
	}
}

// Start registers the tick on the configured cron schedule and launches the
// cron runner. An overlapping tick is skipped, never queued: the next run
// picks up whatever the slow one left behind.
//
// Ticks deliberately run on the scheduler's own context, not the caller's:
// an app shutdown must let the in-flight per-user evaluations finish (their
// notifications are already half-dispatched), so the tick context is only
// cancelled at the end of Stop, after the cron wait completes.
func (s *Scheduler) Start(ctx context.Context) error {
	s.tickCtx, s.tickCancel = context.WithCancel(context.Background())

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(s.config.CheckSchedule, func() {
		if err := s.Tick(s.tickCtx); err != nil {
			s.logger.Error(s.tickCtx, "tick failed", "error", err.Error())
		}
	})
	if err != nil {
		s.tickCancel()
		return fmt.Errorf("error registering schedule %q: %w", s.config.CheckSchedule, err)
	}
	s.cron = c
	c.Start()
	s.logger.Info(ctx, "scheduler started", "schedule", s.config.CheckSchedule, "workers", s.config.WorkerCount)
	return nil
}

// Stop halts the cron runner, waits for a running tick to finish, and only
// then cancels the tick context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.tickCancel != nil {
		s.tickCancel()
	}
}

// Tick runs one full evaluation pass: purge expired tokens, load all
// eligible records, and evaluate them concurrently. One user's failure never
// blocks the rest; Tick reports only infrastructure-level errors.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.clock.Now()

	if n, err := s.repomanager.Tokens(s.db).DeleteExpired(ctx, now); err != nil {
		s.logger.Warn(ctx, "token purge failed", "error", err.Error())
	} else if n > 0 {
		s.logger.Debug(ctx, "expired tokens purged", "count", n)
	}

	recs, err := s.repomanager.Ledger(s.db).ListActive(ctx)
	if err != nil {
		return fmt.Errorf("error loading ledger: %w", err)
	}

	workers := s.config.WorkerCount
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *models.ActivityRecord)
	var wg sync.WaitGroup
	var failed int64
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				if err := s.evaluate(ctx, rec); err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
					s.logger.Error(ctx, "evaluation failed", "user", rec.UserID, "error", err.Error())
				}
			}
		}()
	}

	for _, rec := range recs {
		jobs <- rec
	}
	close(jobs)
	wg.Wait()

	s.logger.Info(ctx, "tick finished", "users", len(recs), "failed", failed)
	return nil
}

// evaluate decides and executes the action for a single record.
func (s *Scheduler) evaluate(ctx context.Context, rec *models.ActivityRecord) error {
	now := s.clock.Now()
	days := escalation.DaysInactive(rec.LastActivityAt, now)
	stage := escalation.Calculate(rec.LastActivityAt, rec.InactivityPeriodDays, s.config.GracePeriodDays, now)

	if !escalation.Due(stage, rec.StageLastSent, rec.Revealed, now) {
		return nil
	}

	s.audit(ctx, rec.UserID, models.ActionInactivityCheck,
		fmt.Sprintf("stage %s after %.1f days inactive", stage, days))

	if stage == escalation.StageExpired {
		return s.disclose(ctx, rec, now)
	}
	return s.notifyStage(ctx, rec, stage, int(days), now)
}

// notifyStage dispatches the stage notification and only then records it.
// The email carries a freshly minted confirmation token; minting it before
// dispatch is harmless because issuing replaces any previous token anyway.
func (s *Scheduler) notifyStage(ctx context.Context, rec *models.ActivityRecord, stage escalation.Stage, daysInactive int, now time.Time) error {
	token, err := s.issuer.IssueToken(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("error issuing token: %w", err)
	}

	if err := s.notifier.SendActivityCheck(ctx, rec, stage, daysInactive, token); err != nil {
		// Not recorded; the next tick retries the same stage.
		return fmt.Errorf("error dispatching %s notification: %w", stage, err)
	}

	if rec.StageLastSent == nil {
		rec.StageLastSent = map[string]time.Time{}
	}
	rec.StageLastSent[stage.String()] = now

	if err := s.repomanager.Ledger(s.db).Update(ctx, rec, rec.Version); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			// The user confirmed activity underneath us. Their reset wins;
			// the sent email is a harmless duplicate.
			s.logger.Debug(ctx, "notification record abandoned", "user", rec.UserID, "stage", stage.String())
			return nil
		}
		return fmt.Errorf("error recording notification: %w", err)
	}

	s.audit(ctx, rec.UserID, models.ActionNotificationSent,
		fmt.Sprintf("%s notification dispatched", stage))
	return nil
}

// disclose runs the disclosure gate and then closes it by setting the
// revealed flag. The flag flips only after every contact was dispatched, so
// an interrupted disclosure resumes on the next tick.
func (s *Scheduler) disclose(ctx context.Context, rec *models.ActivityRecord, now time.Time) error {
	if err := s.revealer.Reveal(ctx, rec); err != nil {
		return fmt.Errorf("error disclosing vault: %w", err)
	}

	rec.Revealed = true
	rec.RevealedAt = &now

	if err := s.repomanager.Ledger(s.db).Update(ctx, rec, rec.Version); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			// An eleventh-hour confirmation raced the disclosure. The gate
			// stays open for re-evaluation; contacts already notified are
			// not contacted again.
			s.logger.Warn(ctx, "reveal record abandoned", "user", rec.UserID)
			return nil
		}
		return fmt.Errorf("error recording reveal: %w", err)
	}
	return nil
}

func (s *Scheduler) audit(ctx context.Context, userID, action, details string) {
	entry := &models.ActivityLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repomanager.ActivityLog(s.db).Append(ctx, entry); err != nil {
		s.logger.Warn(ctx, "audit append failed", "user", userID, "action", action, "error", err.Error())
	}
}
