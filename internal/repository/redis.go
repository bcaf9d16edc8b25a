package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"roombook/internal/config"
	"roombook/internal/models"

	"github.com/redis/go-redis/v9"
)

const roomIndexKey = "rooms:index"

func roomKey(id string) string {
	return fmt.Sprintf("room:%s", id)
}

// roomDoc is the persisted shape of a room. The aggregate's booking
// slice is unexported, so storage goes through this document.
type roomDoc struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Bookings []models.Booking `json:"bookings"`
}

// RedisRoomRepository stores rooms as JSON documents plus an index list
// that keeps FindAll in first-save order.
type RedisRoomRepository struct {
	client *redis.Client
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisRoomRepository(client *redis.Client) *RedisRoomRepository {
	return &RedisRoomRepository{client: client}
}

func (r *RedisRoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, roomKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room from redis: %w", err)
	}

	var doc roomDoc
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return models.RestoreRoom(doc.ID, doc.Name, doc.Bookings), nil
}

func (r *RedisRoomRepository) FindAll(ctx context.Context) ([]*models.Room, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	ids, err := r.client.LRange(ctx, roomIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room index: %w", err)
	}

	out := make([]*models.Room, 0, len(ids))
	for _, id := range ids {
		room, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if room != nil {
			out = append(out, room)
		}
	}
	return out, nil
}

func (r *RedisRoomRepository) Save(ctx context.Context, room *models.Room) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	doc := roomDoc{ID: room.ID, Name: room.Name, Bookings: room.Bookings()}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	existed, err := r.client.Exists(ctx, roomKey(room.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if err := r.client.Set(ctx, roomKey(room.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set room in redis: %w", err)
	}
	if existed == 0 {
		if err := r.client.RPush(ctx, roomIndexKey, room.ID).Err(); err != nil {
			return fmt.Errorf("failed to index room: %w", err)
		}
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
