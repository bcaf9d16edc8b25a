package repository

import (
	"context"
	"sync"

	"roombook/internal/models"
)

// MemoryRoomRepository keeps rooms in a mutex-guarded map. FindAll
// preserves first-save order, and rooms are deep-copied at the boundary
// so callers never alias the stored booking slices.
type MemoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
	order []string
}

func NewMemoryRoomRepository() *MemoryRoomRepository {
	return &MemoryRoomRepository{rooms: make(map[string]*models.Room)}
}

// Seed stores the given rooms without copying ceremony; used at startup
// to load the configured room list.
func (r *MemoryRoomRepository) Seed(rooms ...*models.Room) {
	for _, room := range rooms {
		_ = r.Save(context.Background(), room)
	}
}

func (r *MemoryRoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, nil
	}
	return room.Clone(), nil
}

func (r *MemoryRoomRepository) FindAll(ctx context.Context) ([]*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Room, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rooms[id].Clone())
	}
	return out, nil
}

func (r *MemoryRoomRepository) Save(ctx context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.ID]; !ok {
		r.order = append(r.order, room.ID)
	}
	r.rooms[room.ID] = room.Clone()
	return nil
}
