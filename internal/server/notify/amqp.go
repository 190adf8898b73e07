package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/escalation"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpDial is a seam for testing amqp.Dial.
var amqpDial = amqp.Dial

// emailJob is the payload handed to the external mailer consuming the queue.
type emailJob struct {
	Email
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	Stage  string `json:"stage,omitempty"`
}

// AMQPNotifier hands messages to an external mailer via a durable RabbitMQ
// queue. Broker acknowledgment of the persistent publish counts as dispatch
// acknowledgment for the scheduler's bookkeeping; downstream delivery
// retries belong to the mailer.
type AMQPNotifier struct {
	url     string
	queue   string
	builder builder
	logger  logging.Logger
}

func (n *AMQPNotifier) publish(ctx context.Context, job emailJob) error {
	conn, err := amqpDial(n.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so jobs survive broker restarts.
	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (n *AMQPNotifier) SendActivityCheck(ctx context.Context, rec *models.ActivityRecord, stage escalation.Stage, daysInactive int, token string) error {
	job := emailJob{
		Email:  n.builder.activityCheck(rec, stage, daysInactive, token),
		UserID: rec.UserID,
		Kind:   "activity_check",
		Stage:  stage.String(),
	}
	if err := n.publish(ctx, job); err != nil {
		return err
	}
	n.logger.Info(ctx, "activity check queued", "to", job.To, "stage", job.Stage)
	return nil
}

func (n *AMQPNotifier) SendDisclosure(ctx context.Context, rec *models.ActivityRecord, contact *models.TrustedContact, snapshotURL string) error {
	job := emailJob{
		Email:  n.builder.disclosure(rec, contact, snapshotURL),
		UserID: rec.UserID,
		Kind:   "disclosure",
	}
	if err := n.publish(ctx, job); err != nil {
		return err
	}
	n.logger.Warn(ctx, "disclosure notice queued", "to", job.To, "user", rec.UserID)
	return nil
}
