package models

import (
	"time"

	"roombook/internal/apperr"
)

// Booking is an immutable reservation of one room for the half-open
// interval [Start, End). Start == End is a valid zero-duration booking.
type Booking struct {
	ID     string    `json:"id"`
	RoomID string    `json:"room_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func NewBooking(id, roomID string, start, end time.Time) (Booking, error) {
	if id == "" {
		return Booking{}, apperr.InvalidArgument("booking id is required")
	}
	if roomID == "" {
		return Booking{}, apperr.InvalidArgument("room id is required")
	}
	if start.IsZero() || end.IsZero() {
		return Booking{}, apperr.InvalidArgument("booking start and end times are required")
	}
	if end.Before(start) {
		return Booking{}, apperr.InvalidArgument("end time must be after start time")
	}
	return Booking{ID: id, RoomID: roomID, Start: start, End: end}, nil
}

// Overlaps reports whether the booking's interval intersects
// [start, end) under half-open semantics. A degenerate interval on
// either side never overlaps anything.
func (b Booking) Overlaps(start, end time.Time) bool {
	if start.Equal(end) || b.Start.Equal(b.End) {
		return false
	}
	return start.Before(b.End) && b.Start.Before(end)
}
