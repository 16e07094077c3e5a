package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/retry"
	"github.com/sirupsen/logrus"
)

type Sender interface {
	Send(ctx context.Context, title, message string) error
}

type LogStore interface {
	RecordNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
}

type Dispatcher struct {
	sender    Sender
	log       LogStore
	retryOpts []retry.Option
	now       func() time.Time
}

func NewDispatcher(sender Sender, log LogStore, retryOpts ...retry.Option) *Dispatcher {
	return &Dispatcher{sender: sender, log: log, retryOpts: retryOpts, now: time.Now}
}

// Dispatch delivers m and records the attempt whatever the outcome. The
// returned error is the delivery error; a failure to write the history is
// only logged.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.New(),
		Type:      m.Kind(),
		Title:     m.Title(),
		Message:   m.Body(),
		CreatedAt: d.now().UTC(),
	}

	_, sendErr := retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.sender.Send(ctx, n.Title, n.Message)
	}, d.retryOpts...)

	if sendErr != nil {
		n.Status = models.NotificationStatusFailed
		n.Error = sendErr.Error()
	} else {
		sentAt := d.now().UTC()
		n.Status = models.NotificationStatusSent
		n.SentAt = &sentAt
	}

	// record even when the request context is already gone
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.log.RecordNotification(recordCtx, n); err != nil {
		logrus.WithField("notification_id", n.ID).WithError(err).Error("Dispatch: Failed to record notification")
	}

	log := logrus.WithFields(logrus.Fields{"notification_id": n.ID, "type": n.Type})
	if sendErr != nil {
		log.WithError(sendErr).Warn("Dispatch: Delivery failed")
		return n, sendErr
	}
	log.Info("Dispatch: Notification sent")
	return n, nil
}

func (d *Dispatcher) History(ctx context.Context, limit int) ([]models.Notification, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	return d.log.ListNotifications(ctx, limit)
}
