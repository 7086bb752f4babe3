package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/venue-bookings/pkg/events"
	"github.com/diagnosis/venue-bookings/pkg/logger"
	"github.com/diagnosis/venue-bookings/pkg/metrics"
	"github.com/diagnosis/venue-bookings/services/notify/internal/mailer"
)

const sendTimeout = 15 * time.Second

// Worker turns booking events into emails.
type Worker struct {
	sub    events.Subscriber
	sender mailer.Sender
	queue  string
}

func New(sub events.Subscriber, sender mailer.Sender, queue string) *Worker {
	return &Worker{sub: sub, sender: sender, queue: queue}
}

// Start registers queue subscriptions for every booking subject. Members of
// the same queue group share the load, so each event is mailed once.
func (w *Worker) Start() error {
	if err := w.sub.QueueSubscribe(events.BookingCreated, w.queue, w.handleCreated); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.BookingCreated, err)
	}
	if err := w.sub.QueueSubscribe(events.BookingCanceled, w.queue, w.handleCanceled); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.BookingCanceled, err)
	}
	logger.Info("Notify worker subscribed", "queue", w.queue)
	return nil
}

func (w *Worker) handleCreated(msg *events.Message) {
	var e events.BookingCreatedEvent
	if err := msg.Decode(&e); err != nil {
		logger.Error("Dropping malformed event", "error", err)
		metrics.IncNotification("booking_created", "failed")
		return
	}
	w.deliver("booking_created", e.BookingID, mailer.BookingConfirmation(e))
}

func (w *Worker) handleCanceled(msg *events.Message) {
	var e events.BookingCanceledEvent
	if err := msg.Decode(&e); err != nil {
		logger.Error("Dropping malformed event", "error", err)
		metrics.IncNotification("booking_canceled", "failed")
		return
	}
	w.deliver("booking_canceled", e.BookingID, mailer.BookingCancellation(e))
}

func (w *Worker) deliver(kind string, bookingID int64, email mailer.Email) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	id, err := w.sender.Send(ctx, email)
	switch {
	case errors.Is(err, mailer.ErrNoRecipient):
		logger.Warn("Skipping email without recipient", "kind", kind, "booking_id", bookingID)
		metrics.IncNotification(kind, "skipped")
	case err != nil:
		logger.Error("Failed to send email", "kind", kind, "booking_id", bookingID, "error", err)
		metrics.IncNotification(kind, "failed")
	default:
		logger.Info("Email sent", "kind", kind, "booking_id", bookingID, "message_id", id)
		metrics.IncNotification(kind, "sent")
	}
}
