package service

import (
	"context"
	"sync"
	"time"

	"roombook/internal/apperr"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/metrics"
	"roombook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingService orchestrates room reservations: it validates requests,
// applies temporal policy against the injected clock, delegates overlap
// checks to the Room aggregate and persists through the repository.
// Confirmation delivery is best-effort and never changes the outcome.
type BookingService struct {
	clock     domain.TimeProvider
	rooms     domain.RoomRepository
	notifier  domain.Notifier
	eventBus  domain.EventPublisher
	logger    *zerolog.Logger
	roomLocks sync.Map // room id -> *sync.Mutex
}

func NewBookingService(
	clock domain.TimeProvider,
	rooms domain.RoomRepository,
	notifier domain.Notifier,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		clock:    clock,
		rooms:    rooms,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
	}
}

// lockRoom serializes the read-check-write sequence per room id so that
// two concurrent calls can never commit overlapping bookings on the
// same room.
func (s *BookingService) lockRoom(roomID string) *sync.Mutex {
	v, _ := s.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// BookRoom reserves [start, end) on the given room. It returns
// (false, nil) when the room exists but the window is taken, and an
// error for invalid input. Validation order is fixed: later checks
// assume earlier ones hold.
func (s *BookingService) BookRoom(ctx context.Context, roomID string, start, end time.Time) (bool, error) {
	if roomID == "" || start.IsZero() || end.IsZero() {
		return false, apperr.InvalidArgument("valid start/end times and a room id are required")
	}
	if start.Before(s.clock.Now()) {
		return false, apperr.InvalidArgument("cannot book a time in the past")
	}
	if end.Before(start) {
		return false, apperr.InvalidArgument("end time must be after start time")
	}

	mu := s.lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	if room == nil {
		return false, apperr.InvalidArgument("room does not exist")
	}

	if !room.IsAvailable(start, end) {
		metrics.IncBookingConflict()
		return false, nil
	}

	booking, err := models.NewBooking(uuid.NewString(), roomID, start, end)
	if err != nil {
		return false, err
	}
	if err := room.AddBooking(booking); err != nil {
		return false, err
	}
	if err := s.rooms.Save(ctx, room); err != nil {
		return false, err
	}

	s.confirm(ctx, booking, room, false)
	metrics.IncBookingCreated()
	return true, nil
}

// GetAvailableRooms returns the rooms free for the whole of
// [start, end), in the order the directory produced them. Pure read.
func (s *BookingService) GetAvailableRooms(ctx context.Context, start, end time.Time) ([]*models.Room, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperr.InvalidArgument("both start and end time are required")
	}
	if end.Before(start) {
		return nil, apperr.InvalidArgument("end time must be after start time")
	}

	all, err := s.rooms.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]*models.Room, 0, len(all))
	for _, room := range all {
		if room.IsAvailable(start, end) {
			available = append(available, room)
		}
	}
	return available, nil
}

// CancelBooking removes the booking with the given id from whichever
// room holds it. Bookings that already started cannot be cancelled.
// Returns (false, nil) when no room holds such a booking.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) (bool, error) {
	if bookingID == "" {
		return false, apperr.InvalidArgument("booking id cannot be absent")
	}

	all, err := s.rooms.FindAll(ctx)
	if err != nil {
		return false, err
	}

	// At most one room holds the booking, by the ownership invariant.
	var owner *models.Room
	for _, room := range all {
		if room.HasBooking(bookingID) {
			owner = room
			break
		}
	}
	if owner == nil {
		return false, nil
	}

	mu := s.lockRoom(owner.ID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock: the snapshot from FindAll may be stale.
	room, err := s.rooms.FindByID(ctx, owner.ID)
	if err != nil {
		return false, err
	}
	if room == nil {
		return false, nil
	}
	booking, ok := room.FindBooking(bookingID)
	if !ok {
		return false, nil
	}

	if booking.Start.Before(s.clock.Now()) {
		return false, apperr.InvalidState("cannot cancel a booking that has already started or finished")
	}

	room.RemoveBooking(bookingID)
	if err := s.rooms.Save(ctx, room); err != nil {
		return false, err
	}

	s.confirm(ctx, booking, room, true)
	metrics.IncBookingCancelled()
	return true, nil
}

// confirm sends the confirmation and publishes the lifecycle event.
// Notification failures are discarded: the reservation or cancellation
// is valid state whether or not the user hears about it synchronously.
func (s *BookingService) confirm(ctx context.Context, booking models.Booking, room *models.Room, cancelled bool) {
	var err error
	if cancelled {
		err = s.notifier.SendCancellationConfirmation(ctx, booking)
	} else {
		err = s.notifier.SendBookingConfirmation(ctx, booking)
	}
	if err != nil {
		metrics.IncNotificationFailure()
		s.logger.Debug().Err(err).Str("booking_id", booking.ID).Msg("confirmation delivery failed")
	}

	eventType := events.EventBookingCreated
	if cancelled {
		eventType = events.EventBookingCancelled
	}
	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		RoomID:    booking.RoomID,
		RoomName:  room.Name,
		Start:     booking.Start,
		End:       booking.End,
	}
	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
			s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
		}
	}
}

var _ domain.BookingService = (*BookingService)(nil)
