package notify

import (
	"context"

	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/escalation"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// LogNotifier writes messages to the structured log instead of sending
// them. Default backend for development and demos, where real email is
// deliberately disabled.
type LogNotifier struct {
	builder builder
	logger  logging.Logger
}

func (n *LogNotifier) SendActivityCheck(ctx context.Context, rec *models.ActivityRecord, stage escalation.Stage, daysInactive int, token string) error {
	msg := n.builder.activityCheck(rec, stage, daysInactive, token)
	n.logger.Info(ctx, "activity check (not sent)",
		"to", msg.To, "stage", stage.String(), "days_inactive", daysInactive,
		"subject", msg.Subject)
	return nil
}

func (n *LogNotifier) SendDisclosure(ctx context.Context, rec *models.ActivityRecord, contact *models.TrustedContact, snapshotURL string) error {
	msg := n.builder.disclosure(rec, contact, snapshotURL)
	n.logger.Warn(ctx, "disclosure notice (not sent)",
		"to", msg.To, "user", rec.UserID, "subject", msg.Subject)
	return nil
}
