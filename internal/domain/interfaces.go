package domain

import (
	"context"
	"time"

	"roombook/internal/models"
)

// TimeProvider supplies the instant all temporal policy is evaluated
// against. Injected so tests can pin or move "now".
type TimeProvider interface {
	Now() time.Time
}

// RoomRepository is the directory of rooms. FindByID returns (nil, nil)
// when the room does not exist; any error is treated as fatal by the
// service layer and is never retried there.
type RoomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindAll(ctx context.Context) ([]*models.Room, error)
	Save(ctx context.Context, room *models.Room) error
}

// Notifier delivers booking confirmations. Failures are best-effort by
// contract: the service discards them after the state change committed.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, booking models.Booking) error
	SendCancellationConfirmation(ctx context.Context, booking models.Booking) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	BookRoom(ctx context.Context, roomID string, start, end time.Time) (bool, error)
	GetAvailableRooms(ctx context.Context, start, end time.Time) ([]*models.Room, error)
	CancelBooking(ctx context.Context, bookingID string) (bool, error)
}
