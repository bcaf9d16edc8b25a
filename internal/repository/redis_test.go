package repository

import (
	"context"
	"testing"
	"time"

	"roombook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisRepo(t *testing.T) *RedisRoomRepository {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRoomRepository(client)
}

func TestRedisRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRedisRepo(t)

	missing, err := repo.FindByID(ctx, "room1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	room := models.NewRoom("room1", "Room 1")
	start := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	b, err := models.NewBooking("b1", "room1", start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, room.AddBooking(b))
	require.NoError(t, repo.Save(ctx, room))

	got, err := repo.FindByID(ctx, "room1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Room 1", got.Name)

	found, ok := got.FindBooking("b1")
	require.True(t, ok)
	assert.True(t, found.Start.Equal(start))
	assert.True(t, found.End.Equal(start.Add(2*time.Hour)))
}

func TestRedisRepositoryFindAllOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRedisRepo(t)

	require.NoError(t, repo.Save(ctx, models.NewRoom("room2", "Room 2")))
	require.NoError(t, repo.Save(ctx, models.NewRoom("room1", "Room 1")))

	// Overwriting must not duplicate the index entry.
	require.NoError(t, repo.Save(ctx, models.NewRoom("room2", "Room 2 renamed")))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "room2", all[0].ID)
	assert.Equal(t, "room1", all[1].ID)
	assert.Equal(t, "Room 2 renamed", all[0].Name)
}

func TestRedisRepositorySaveRemovedBooking(t *testing.T) {
	ctx := context.Background()
	repo := newTestRedisRepo(t)

	room := models.NewRoom("room1", "Room 1")
	start := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	b, err := models.NewBooking("b1", "room1", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, room.AddBooking(b))
	require.NoError(t, repo.Save(ctx, room))

	room.RemoveBooking("b1")
	require.NoError(t, repo.Save(ctx, room))

	got, err := repo.FindByID(ctx, "room1")
	require.NoError(t, err)
	assert.False(t, got.HasBooking("b1"))
}
