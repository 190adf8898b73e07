package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/escalation"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
	"github.com/sethvargo/go-retry"
)

// sendMail is a seam for testing smtp.SendMail.
var sendMail = smtp.SendMail

// SMTPNotifier delivers email through a relay. Transient relay errors are
// retried with fibonacci backoff before the failure is surfaced to the
// scheduler, which will re-fire the notification on the next tick anyway.
type SMTPNotifier struct {
	addr    string
	from    string
	builder builder
	logger  logging.Logger
}

func (n *SMTPNotifier) send(ctx context.Context, msg Email) error {
	payload := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		msg.To, msg.Subject, msg.Body))

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := sendMail(n.addr, nil, n.from, []string{msg.To}, payload); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("smtp dispatch to %s: %w", msg.To, err)
	}
	return nil
}

func (n *SMTPNotifier) SendActivityCheck(ctx context.Context, rec *models.ActivityRecord, stage escalation.Stage, daysInactive int, token string) error {
	msg := n.builder.activityCheck(rec, stage, daysInactive, token)
	if err := n.send(ctx, msg); err != nil {
		return err
	}
	n.logger.Info(ctx, "activity check sent", "to", msg.To, "stage", stage.String())
	return nil
}

func (n *SMTPNotifier) SendDisclosure(ctx context.Context, rec *models.ActivityRecord, contact *models.TrustedContact, snapshotURL string) error {
	msg := n.builder.disclosure(rec, contact, snapshotURL)
	if err := n.send(ctx, msg); err != nil {
		return err
	}
	n.logger.Warn(ctx, "disclosure notice sent", "to", msg.To, "user", rec.UserID)
	return nil
}
