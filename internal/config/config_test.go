package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "roombook", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "x-api-extra", cfg.API.Auth.HeaderExtra)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: roombook
  environment: test
  version: 1.2.3
database:
  driver: sqlite
  path: ./data/rooms.db
redis:
  enabled: true
  address: localhost:6379
  db: 2
rooms:
  - id: room1
    name: Conference Room
  - id: room2
    name: Board Room
api:
  enabled: true
  http:
    port: 9000
  auth:
    enabled: true
    api_keys:
      - key: secret
        extra: extra
        name: ops
        permissions: ["read:rooms"]
  rate_limit:
    rps: 10
    burst: 20
logging:
  level: debug
  format: console
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Environment)
	assert.Equal(t, "./data/rooms.db", cfg.Database.Path)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2, cfg.Redis.DB)
	require.Len(t, cfg.Rooms, 2)
	assert.Equal(t, "room1", cfg.Rooms[0].ID)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, 9000, cfg.API.HTTP.Port)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, []string{"read:rooms"}, cfg.API.Auth.APIKeys[0].Permissions)
	assert.Equal(t, float64(10), cfg.API.RateLimit.RPS)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")
	path := writeConfig(t, `
database:
  driver: memory
redis:
  enabled: true
  address: localhost:6379
  password: ${TEST_REDIS_PASSWORD}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
}

func TestLoadValidation(t *testing.T) {
	t.Run("SQLiteRequiresPath", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
database:
  driver: sqlite
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database path is required")
	})

	t.Run("RedisRequiresAddress", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
database:
  driver: memory
redis:
  enabled: true
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis address is required")
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestValidateRooms(t *testing.T) {
	assert.NoError(t, ValidateRooms(nil))
	assert.NoError(t, ValidateRooms([]RoomSeed{{ID: "room1", Name: "A"}, {ID: "room2", Name: "B"}}))

	err := ValidateRooms([]RoomSeed{{ID: "room1"}, {ID: "room1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate room id")

	err = ValidateRooms([]RoomSeed{{Name: "Unnamed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty id")
}
