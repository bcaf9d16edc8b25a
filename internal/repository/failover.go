package repository

import (
	"context"
	"sync/atomic"
	"time"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRoomRepository serves from the primary until it fails, then
// degrades to the fallback and probes the primary again after a minute.
// Writes are mirrored to the fallback while the primary is healthy so
// the fallback holds current state when a failover happens.
type FailoverRoomRepository struct {
	primary   domain.RoomRepository
	fallback  domain.RoomRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverRoomRepository(primary, fallback domain.RoomRepository, logger *zerolog.Logger) *FailoverRoomRepository {
	return &FailoverRoomRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverRoomRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary room repository failed, falling back")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverRoomRepository) shouldProbe() bool {
	last := time.Unix(0, r.lastCheck.Load())
	return time.Since(last) > recoveryInterval
}

func (r *FailoverRoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if !r.isDown.Load() {
		room, err := r.primary.FindByID(ctx, id)
		if err == nil {
			return room, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		room, err := r.primary.FindByID(ctx, id)
		if err == nil {
			r.isDown.Store(false)
			return room, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.FindByID(ctx, id)
}

func (r *FailoverRoomRepository) FindAll(ctx context.Context) ([]*models.Room, error) {
	if !r.isDown.Load() {
		rooms, err := r.primary.FindAll(ctx)
		if err == nil {
			return rooms, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		rooms, err := r.primary.FindAll(ctx)
		if err == nil {
			r.isDown.Store(false)
			return rooms, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.FindAll(ctx)
}

func (r *FailoverRoomRepository) Save(ctx context.Context, room *models.Room) error {
	if !r.isDown.Load() {
		if err := r.primary.Save(ctx, room); err != nil {
			r.markDown(err)
			return r.fallback.Save(ctx, room)
		}
		// Mirror so the fallback can serve reads after a failover.
		if err := r.fallback.Save(ctx, room); err != nil {
			r.logger.Warn().Err(err).Str("room_id", room.ID).Msg("fallback mirror write failed")
		}
		return nil
	}

	return r.fallback.Save(ctx, room)
}
