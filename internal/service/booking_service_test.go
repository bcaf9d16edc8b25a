package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"roombook/internal/apperr"
	"roombook/internal/clock"
	"roombook/internal/events"
	"roombook/internal/logging"
	"roombook/internal/models"
	"roombook/internal/notify"
	"roombook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRoomRepo struct {
	mock.Mock
}

func (m *mockRoomRepo) FindByID(ctx context.Context, id string) (*models.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *mockRoomRepo) FindAll(ctx context.Context) ([]*models.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Room), args.Error(1)
}

func (m *mockRoomRepo) Save(ctx context.Context, room *models.Room) error {
	return m.Called(ctx, room).Error(0)
}

type fixture struct {
	clock    *clock.Fixed
	repo     *mockRoomRepo
	notifier *notify.Recorder
	svc      *BookingService

	currentTime time.Time
	futureStart time.Time
	futureEnd   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:        &mockRoomRepo{},
		notifier:    &notify.Recorder{},
		currentTime: time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC),
	}
	f.futureStart = time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	f.futureEnd = time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)
	f.clock = clock.NewFixed(f.currentTime)
	f.svc = NewBookingService(f.clock, f.repo, f.notifier, events.NewEventBus(), logging.Nop())
	return f
}

func TestBookRoomValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingParameters", func(t *testing.T) {
		f := newFixture(t)
		cases := []struct {
			name   string
			roomID string
			start  time.Time
			end    time.Time
		}{
			{"EmptyRoomID", "", f.futureStart, f.futureEnd},
			{"ZeroStart", "room1", time.Time{}, f.futureEnd},
			{"ZeroEnd", "room1", f.futureStart, time.Time{}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.svc.BookRoom(ctx, tc.roomID, tc.start, tc.end)
				require.Error(t, err)
				assert.True(t, apperr.IsInvalidArgument(err))
				assert.Equal(t, "valid start/end times and a room id are required", err.Error())
			})
		}
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("StartInPast", func(t *testing.T) {
		f := newFixture(t)
		past := f.currentTime.Add(-time.Hour)
		_, err := f.svc.BookRoom(ctx, "room1", past, f.futureEnd)
		require.Error(t, err)
		assert.True(t, apperr.IsInvalidArgument(err))
		assert.Equal(t, "cannot book a time in the past", err.Error())
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.BookRoom(ctx, "room1", f.futureStart, f.futureStart.Add(-time.Hour))
		require.Error(t, err)
		assert.True(t, apperr.IsInvalidArgument(err))
		assert.Equal(t, "end time must be after start time", err.Error())
	})

	t.Run("RoomDoesNotExist", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "nonexistent").Return(nil, nil)

		_, err := f.svc.BookRoom(ctx, "nonexistent", f.futureStart, f.futureEnd)
		require.Error(t, err)
		assert.True(t, apperr.IsInvalidArgument(err))
		assert.Equal(t, "room does not exist", err.Error())
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestBookRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsFalseWhenNotAvailable", func(t *testing.T) {
		f := newFixture(t)
		room := models.NewRoom("room1", "Test Room")
		existing, err := models.NewBooking("b1", "room1", f.futureStart, f.futureEnd)
		require.NoError(t, err)
		require.NoError(t, room.AddBooking(existing))
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)

		booked, err := f.svc.BookRoom(ctx, "room1", f.futureStart, f.futureEnd)
		require.NoError(t, err)
		assert.False(t, booked)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.notifier.Confirmations)
	})

	t.Run("BooksWhenAvailable", func(t *testing.T) {
		f := newFixture(t)
		room := models.NewRoom("room1", "Test Room")
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)
		f.repo.On("Save", mock.Anything, room).Return(nil)

		booked, err := f.svc.BookRoom(ctx, "room1", f.futureStart, f.futureEnd)
		require.NoError(t, err)
		assert.True(t, booked)
		assert.False(t, room.IsAvailable(f.futureStart, f.futureEnd))
		f.repo.AssertCalled(t, "Save", mock.Anything, room)
		require.Len(t, f.notifier.Confirmations, 1)
		assert.Equal(t, "room1", f.notifier.Confirmations[0].RoomID)
	})

	t.Run("SucceedsWhenNotificationFails", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.FailWith = &notify.NotificationError{Op: "booking_confirmation"}
		room := models.NewRoom("room1", "Test Room")
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)
		f.repo.On("Save", mock.Anything, room).Return(nil)

		booked, err := f.svc.BookRoom(ctx, "room1", f.futureStart, f.futureEnd)
		require.NoError(t, err)
		assert.True(t, booked)
		assert.False(t, room.IsAvailable(f.futureStart, f.futureEnd))
		require.Len(t, f.notifier.Confirmations, 1)
	})

	t.Run("AllowsZeroDurationBooking", func(t *testing.T) {
		f := newFixture(t)
		room := models.NewRoom("room1", "Test Room")
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)
		f.repo.On("Save", mock.Anything, room).Return(nil)

		booked, err := f.svc.BookRoom(ctx, "room1", f.futureStart, f.futureStart)
		require.NoError(t, err)
		assert.True(t, booked)
	})

	t.Run("AllowsStartEqualToNow", func(t *testing.T) {
		f := newFixture(t)
		room := models.NewRoom("room1", "Test Room")
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)
		f.repo.On("Save", mock.Anything, room).Return(nil)

		booked, err := f.svc.BookRoom(ctx, "room1", f.currentTime, f.currentTime.Add(2*time.Hour))
		require.NoError(t, err)
		assert.True(t, booked)
	})

	t.Run("RepositoryErrorPropagates", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("directory down")
		f.repo.On("FindByID", mock.Anything, "room1").Return(nil, boom)

		_, err := f.svc.BookRoom(ctx, "room1", f.futureStart, f.futureEnd)
		assert.ErrorIs(t, err, boom)
	})
}

func TestGetAvailableRooms(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingTimes", func(t *testing.T) {
		f := newFixture(t)
		for _, tc := range []struct {
			name       string
			start, end time.Time
		}{
			{"ZeroStart", time.Time{}, f.futureEnd},
			{"ZeroEnd", f.futureStart, time.Time{}},
		} {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.svc.GetAvailableRooms(ctx, tc.start, tc.end)
				require.Error(t, err)
				assert.True(t, apperr.IsInvalidArgument(err))
				assert.Equal(t, "both start and end time are required", err.Error())
			})
		}
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.GetAvailableRooms(ctx, f.futureStart, f.futureStart.Add(-time.Hour))
		require.Error(t, err)
		assert.Equal(t, "end time must be after start time", err.Error())
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindAll", mock.Anything).Return([]*models.Room{}, nil)

		rooms, err := f.svc.GetAvailableRooms(ctx, f.futureStart, f.futureEnd)
		require.NoError(t, err)
		assert.Empty(t, rooms)
	})

	t.Run("FiltersOverlappingRooms", func(t *testing.T) {
		f := newFixture(t)
		free1 := models.NewRoom("room1", "Free Room 1")
		free2 := models.NewRoom("room2", "Free Room 2")
		busy := models.NewRoom("room3", "Busy Room")
		b, err := models.NewBooking("b1", "room3", f.futureStart.Add(-time.Hour), f.futureStart.Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, busy.AddBooking(b))
		f.repo.On("FindAll", mock.Anything).Return([]*models.Room{free1, busy, free2}, nil)

		rooms, err := f.svc.GetAvailableRooms(ctx, f.futureStart, f.futureEnd)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, free1, rooms[0])
		assert.Equal(t, free2, rooms[1])
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("AllAvailable", func(t *testing.T) {
		f := newFixture(t)
		all := []*models.Room{
			models.NewRoom("room1", "Room 1"),
			models.NewRoom("room2", "Room 2"),
			models.NewRoom("room3", "Room 3"),
		}
		f.repo.On("FindAll", mock.Anything).Return(all, nil)

		rooms, err := f.svc.GetAvailableRooms(ctx, f.futureStart, f.futureEnd)
		require.NoError(t, err)
		assert.Equal(t, all, rooms)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyBookingID", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CancelBooking(ctx, "")
		require.Error(t, err)
		assert.True(t, apperr.IsInvalidArgument(err))
		assert.Equal(t, "booking id cannot be absent", err.Error())
	})

	t.Run("UnknownBookingReturnsFalse", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindAll", mock.Anything).Return([]*models.Room{models.NewRoom("room1", "Test Room")}, nil)

		cancelled, err := f.svc.CancelBooking(ctx, "nonexistent")
		require.NoError(t, err)
		assert.False(t, cancelled)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.notifier.Cancellations)
	})

	t.Run("AlreadyStartedBooking", func(t *testing.T) {
		f := newFixture(t)
		room := models.NewRoom("room1", "Test Room")
		past, err := models.NewBooking("b1", "room1", f.currentTime.Add(-2*time.Hour), f.currentTime.Add(-time.Hour))
		require.NoError(t, err)
		require.NoError(t, room.AddBooking(past))
		f.repo.On("FindAll", mock.Anything).Return([]*models.Room{room}, nil)
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)

		_, err = f.svc.CancelBooking(ctx, "b1")
		require.Error(t, err)
		assert.True(t, apperr.IsInvalidState(err))
		assert.Equal(t, "cannot cancel a booking that has already started or finished", err.Error())
		assert.True(t, room.HasBooking("b1"), "booking set unchanged")
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.notifier.Cancellations)
	})

	t.Run("StartEqualToNowIsCancellable", func(t *testing.T) {
		f := newFixture(t)
		room := models.NewRoom("room1", "Test Room")
		b, err := models.NewBooking("b1", "room1", f.currentTime, f.futureEnd)
		require.NoError(t, err)
		require.NoError(t, room.AddBooking(b))
		f.repo.On("FindAll", mock.Anything).Return([]*models.Room{room}, nil)
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)
		f.repo.On("Save", mock.Anything, room).Return(nil)

		cancelled, err := f.svc.CancelBooking(ctx, "b1")
		require.NoError(t, err)
		assert.True(t, cancelled)
		assert.False(t, room.HasBooking("b1"))
	})

	t.Run("CancelsFutureBooking", func(t *testing.T) {
		f := newFixture(t)
		room := models.NewRoom("room1", "Test Room")
		b, err := models.NewBooking("b1", "room1", f.futureStart, f.futureEnd)
		require.NoError(t, err)
		require.NoError(t, room.AddBooking(b))
		f.repo.On("FindAll", mock.Anything).Return([]*models.Room{room}, nil)
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)
		f.repo.On("Save", mock.Anything, room).Return(nil)

		cancelled, err := f.svc.CancelBooking(ctx, "b1")
		require.NoError(t, err)
		assert.True(t, cancelled)
		assert.False(t, room.HasBooking("b1"))
		f.repo.AssertCalled(t, "Save", mock.Anything, room)
		require.Len(t, f.notifier.Cancellations, 1)
		assert.Equal(t, "b1", f.notifier.Cancellations[0].ID)
	})

	t.Run("SucceedsWhenNotificationFails", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.FailWith = &notify.NotificationError{Op: "cancellation_confirmation"}
		room := models.NewRoom("room1", "Test Room")
		b, err := models.NewBooking("b1", "room1", f.futureStart, f.futureEnd)
		require.NoError(t, err)
		require.NoError(t, room.AddBooking(b))
		f.repo.On("FindAll", mock.Anything).Return([]*models.Room{room}, nil)
		f.repo.On("FindByID", mock.Anything, "room1").Return(room, nil)
		f.repo.On("Save", mock.Anything, room).Return(nil)

		cancelled, err := f.svc.CancelBooking(ctx, "b1")
		require.NoError(t, err)
		assert.True(t, cancelled)
		assert.False(t, room.HasBooking("b1"))
	})

	t.Run("FindsBookingInCorrectRoom", func(t *testing.T) {
		f := newFixture(t)
		room1 := models.NewRoom("room1", "Room 1")
		room2 := models.NewRoom("room2", "Room 2")
		b1, err := models.NewBooking("b1", "room1", f.futureStart, f.futureEnd)
		require.NoError(t, err)
		b2, err := models.NewBooking("b2", "room2", f.futureStart, f.futureEnd)
		require.NoError(t, err)
		require.NoError(t, room1.AddBooking(b1))
		require.NoError(t, room2.AddBooking(b2))
		f.repo.On("FindAll", mock.Anything).Return([]*models.Room{room1, room2}, nil)
		f.repo.On("FindByID", mock.Anything, "room1").Return(room1, nil)
		f.repo.On("Save", mock.Anything, room1).Return(nil)

		cancelled, err := f.svc.CancelBooking(ctx, "b1")
		require.NoError(t, err)
		assert.True(t, cancelled)
		assert.False(t, room1.HasBooking("b1"))
		assert.True(t, room2.HasBooking("b2"))
		f.repo.AssertCalled(t, "Save", mock.Anything, room1)
	})
}

// End-to-end against the real in-memory directory.
func TestBookingLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)
	fixed := clock.NewFixed(now)

	repo := repository.NewMemoryRoomRepository()
	repo.Seed(models.NewRoom("room1", "Room 1"), models.NewRoom("room2", "Room 2"))

	recorder := &notify.Recorder{}
	svc := NewBookingService(fixed, repo, recorder, events.NewEventBus(), logging.Nop())

	start := now.AddDate(0, 0, 1)
	end := start.Add(2 * time.Hour)

	booked, err := svc.BookRoom(ctx, "room1", start, end)
	require.NoError(t, err)
	require.True(t, booked)

	rooms, err := svc.GetAvailableRooms(ctx, start, end)
	require.NoError(t, err)
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	assert.NotContains(t, ids, "room1")
	assert.Contains(t, ids, "room2")

	// Dig out the generated booking id.
	stored, err := repo.FindByID(ctx, "room1")
	require.NoError(t, err)
	bookings := stored.Bookings()
	require.Len(t, bookings, 1)

	cancelled, err := svc.CancelBooking(ctx, bookings[0].ID)
	require.NoError(t, err)
	require.True(t, cancelled)

	rooms, err = svc.GetAvailableRooms(ctx, start, end)
	require.NoError(t, err)
	ids = ids[:0]
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"room1", "room2"}, ids)

	require.Len(t, recorder.Confirmations, 1)
	require.Len(t, recorder.Cancellations, 1)
}

func TestBookingLifecycleAfterTimeAdvances(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)
	fixed := clock.NewFixed(now)

	repo := repository.NewMemoryRoomRepository()
	repo.Seed(models.NewRoom("room1", "Room 1"))

	svc := NewBookingService(fixed, repo, &notify.Recorder{}, events.NewEventBus(), logging.Nop())

	start := now.Add(time.Hour)
	booked, err := svc.BookRoom(ctx, "room1", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, booked)

	stored, err := repo.FindByID(ctx, "room1")
	require.NoError(t, err)
	bookingID := stored.Bookings()[0].ID

	// Once the clock passes the start, cancellation is refused.
	fixed.Advance(2 * time.Hour)
	_, err = svc.CancelBooking(ctx, bookingID)
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidState(err))

	stored, err = repo.FindByID(ctx, "room1")
	require.NoError(t, err)
	assert.True(t, stored.HasBooking(bookingID))
}
