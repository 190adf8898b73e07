// Package notify dispatches the engine's outbound email: activity checks to
// the user and disclosure notices to trusted contacts. Delivery is
// at-least-once; the scheduler only records a notification after a backend
// acknowledges dispatch, so every backend must tolerate being called more
// than once for the same (user, stage).
package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/config"
	"github.com/dmitrijs2005/lifevault/internal/server/escalation"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// Notifier is the dispatch contract consumed by the scheduler and the
// disclosure gate.
type Notifier interface {
	// SendActivityCheck emails the user a stage-appropriate check-in with a
	// one-click confirmation link for the given token.
	SendActivityCheck(ctx context.Context, rec *models.ActivityRecord, stage escalation.Stage, daysInactive int, token string) error

	// SendDisclosure emails one trusted contact the access-granting notice
	// with a link to the sealed snapshot.
	SendDisclosure(ctx context.Context, rec *models.ActivityRecord, contact *models.TrustedContact, snapshotURL string) error
}

// NewNotifier selects a backend from config: "smtp" and "amqp" for real
// deployments, anything else falls back to the log sender.
func NewNotifier(cfg *config.Config, log logging.Logger) Notifier {
	b := builder{baseURL: cfg.AppBaseURL, graceDays: cfg.GracePeriodDays, tokenTTL: cfg.TokenTTL}
	switch cfg.NotifierBackend {
	case "smtp":
		return &SMTPNotifier{
			addr:    fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
			from:    cfg.SMTPFrom,
			builder: b,
			logger:  log.With("module", "notify_smtp"),
		}
	case "amqp":
		return &AMQPNotifier{
			url:     cfg.AMQPURL,
			queue:   cfg.AMQPQueue,
			builder: b,
			logger:  log.With("module", "notify_amqp"),
		}
	default:
		return &LogNotifier{builder: b, logger: log.With("module", "notify_log")}
	}
}
