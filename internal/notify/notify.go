package notify

import (
	"context"
	"fmt"
	"sync"

	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

// NotificationError marks a delivery failure. The booking service
// catches and discards it; a failed confirmation never rolls back the
// committed state change.
type NotificationError struct {
	Op  string
	Err error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notification %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("notification %s failed", e.Op)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// LogNotifier writes confirmations to the log. There is no real
// outbound transport in this service; consumers subscribe to the event
// bus instead.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendBookingConfirmation(ctx context.Context, b models.Booking) error {
	n.logger.Info().
		Str("booking_id", b.ID).
		Str("room_id", b.RoomID).
		Time("start", b.Start).
		Time("end", b.End).
		Msg("booking confirmed")
	return nil
}

func (n *LogNotifier) SendCancellationConfirmation(ctx context.Context, b models.Booking) error {
	n.logger.Info().
		Str("booking_id", b.ID).
		Str("room_id", b.RoomID).
		Msg("booking cancelled")
	return nil
}

// BusNotifier publishes confirmation events on the in-process bus.
type BusNotifier struct {
	bus domain.EventPublisher
}

func NewBusNotifier(bus domain.EventPublisher) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) SendBookingConfirmation(ctx context.Context, b models.Booking) error {
	return n.publish(events.EventBookingConfirmSent, b)
}

func (n *BusNotifier) SendCancellationConfirmation(ctx context.Context, b models.Booking) error {
	return n.publish(events.EventCancelConfirmSent, b)
}

func (n *BusNotifier) publish(eventType string, b models.Booking) error {
	payload := events.BookingEventPayload{
		BookingID: b.ID,
		RoomID:    b.RoomID,
		Start:     b.Start,
		End:       b.End,
	}
	if err := n.bus.PublishJSON(eventType, payload); err != nil {
		return &NotificationError{Op: eventType, Err: err}
	}
	return nil
}

// Recorder is a test double that remembers what it was asked to send
// and can be told to fail.
type Recorder struct {
	mu            sync.Mutex
	FailWith      error
	Confirmations []models.Booking
	Cancellations []models.Booking
}

func (r *Recorder) SendBookingConfirmation(ctx context.Context, b models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Confirmations = append(r.Confirmations, b)
	return r.FailWith
}

func (r *Recorder) SendCancellationConfirmation(ctx context.Context, b models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cancellations = append(r.Cancellations, b)
	return r.FailWith
}
