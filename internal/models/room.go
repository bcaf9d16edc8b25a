package models

import (
	"fmt"
	"time"

	"roombook/internal/apperr"
)

// Room owns the bookings made against it and is the only place the
// no-overlap invariant is enforced. The bookings slice is kept in
// insertion order and never leaves the aggregate by reference.
type Room struct {
	ID       string
	Name     string
	bookings []Booking
}

func NewRoom(id, name string) *Room {
	return &Room{ID: id, Name: name}
}

// RestoreRoom rebuilds a room from persisted state. The stored booking
// set is trusted to already satisfy the no-overlap invariant.
func RestoreRoom(id, name string, bookings []Booking) *Room {
	r := &Room{ID: id, Name: name}
	r.bookings = append(r.bookings, bookings...)
	return r
}

// AddBooking appends a booking. The service checks availability before
// calling; the overlap re-check here only guards against direct misuse.
func (r *Room) AddBooking(b Booking) error {
	if !r.IsAvailable(b.Start, b.End) {
		return apperr.Conflict(fmt.Sprintf("booking %s overlaps an existing booking in room %s", b.ID, r.ID))
	}
	r.bookings = append(r.bookings, b)
	return nil
}

// IsAvailable reports whether [start, end) intersects no existing
// booking. Intervals are half-open: a booking ending exactly at start
// does not conflict, and a zero-duration window never conflicts.
func (r *Room) IsAvailable(start, end time.Time) bool {
	for _, b := range r.bookings {
		if b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

func (r *Room) HasBooking(id string) bool {
	_, ok := r.FindBooking(id)
	return ok
}

func (r *Room) FindBooking(id string) (Booking, bool) {
	for _, b := range r.bookings {
		if b.ID == id {
			return b, true
		}
	}
	return Booking{}, false
}

// RemoveBooking deletes the booking with the given id. Removing an
// absent id is a no-op; cross-room lookup is the caller's job.
func (r *Room) RemoveBooking(id string) {
	for i, b := range r.bookings {
		if b.ID == id {
			r.bookings = append(r.bookings[:i], r.bookings[i+1:]...)
			return
		}
	}
}

// Bookings returns a copy of the booking set in insertion order.
func (r *Room) Bookings() []Booking {
	out := make([]Booking, len(r.bookings))
	copy(out, r.bookings)
	return out
}

// Clone returns a deep copy so repositories can hand out rooms without
// aliasing the stored booking slice.
func (r *Room) Clone() *Room {
	return RestoreRoom(r.ID, r.Name, r.bookings)
}
