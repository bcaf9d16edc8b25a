package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"roombook/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the sqlite-backed room directory. Rooms and their bookings live
// in two tables; Save rewrites a room's booking set in one transaction
// so the no-overlap invariant is committed atomically.
type DB struct {
	db *sql.DB
}

func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            seq INTEGER,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            rowid_seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT UNIQUE NOT NULL,
            room_id TEXT NOT NULL,
            start_time DATETIME NOT NULL,
            end_time DATETIME NOT NULL,
            FOREIGN KEY (room_id) REFERENCES rooms(id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room ON bookings(room_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) FindByID(ctx context.Context, id string) (*models.Room, error) {
	var name string
	err := db.db.QueryRowContext(ctx, `SELECT name FROM rooms WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	bookings, err := db.roomBookings(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.RestoreRoom(id, name, bookings), nil
}

func (db *DB) FindAll(ctx context.Context) ([]*models.Room, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT id, name FROM rooms ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	type roomRow struct {
		id   string
		name string
	}
	var roomRows []roomRow
	for rows.Next() {
		var rr roomRow
		if err := rows.Scan(&rr.id, &rr.name); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		roomRows = append(roomRows, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	out := make([]*models.Room, 0, len(roomRows))
	for _, rr := range roomRows {
		bookings, err := db.roomBookings(ctx, rr.id)
		if err != nil {
			return nil, err
		}
		out = append(out, models.RestoreRoom(rr.id, rr.name, bookings))
	}
	return out, nil
}

func (db *DB) roomBookings(ctx context.Context, roomID string) ([]models.Booking, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, start_time, end_time FROM bookings WHERE room_id = ? ORDER BY rowid_seq`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var id string
		var start, end time.Time
		if err := rows.Scan(&id, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, models.Booking{ID: id, RoomID: roomID, Start: start, End: end})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) Save(ctx context.Context, room *models.Room) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO rooms (id, name, seq, created_at, updated_at)
        VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM rooms), ?, ?)
        ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		room.ID, room.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE room_id = ?`, room.ID); err != nil {
		return fmt.Errorf("failed to clear bookings: %w", err)
	}

	for _, b := range room.Bookings() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (id, room_id, start_time, end_time) VALUES (?, ?, ?, ?)`,
			b.ID, room.ID, b.Start, b.End)
		if err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit room save: %w", err)
	}
	return nil
}
