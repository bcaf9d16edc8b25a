package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"roombook/internal/domain"
	"roombook/internal/events"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const defaultQueueSize = 64

// ExportRequest asks for a schedule export covering [Start, End).
type ExportRequest struct {
	Start time.Time
	End   time.Time
}

// ExportWorker consumes export requests and writes the room schedule to
// an .xlsx file, retrying with backoff on transient failures.
type ExportWorker struct {
	rooms      domain.RoomRepository
	exportPath string
	retry      RetryPolicy
	queue      chan ExportRequest
	logger     *zerolog.Logger
}

func NewExportWorker(rooms domain.RoomRepository, exportPath string, retry RetryPolicy, logger *zerolog.Logger) *ExportWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	return &ExportWorker{
		rooms:      rooms,
		exportPath: exportPath,
		retry:      retry,
		queue:      make(chan ExportRequest, defaultQueueSize),
		logger:     logger,
	}
}

// Enqueue schedules an export. Returns an error when the queue is full
// rather than blocking the caller.
func (w *ExportWorker) Enqueue(ctx context.Context, req ExportRequest) error {
	select {
	case w.queue <- req:
		return nil
	default:
		return fmt.Errorf("export queue is full")
	}
}

// WatchBookings refreshes the exported schedule whenever a booking is
// created or cancelled. The refresh covers the booking's days; a full
// queue drops the refresh, the next lifecycle event will catch up.
func (w *ExportWorker) WatchBookings(bus *events.EventBus) {
	refresh := func(e *events.Event) error {
		var p events.BookingEventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		req := ExportRequest{Start: dayOf(p.Start), End: dayOf(p.End)}
		if err := w.Enqueue(context.Background(), req); err != nil {
			w.logger.Warn().Err(err).Str("event_type", e.Type).Msg("schedule refresh dropped")
		}
		return nil
	}
	bus.Subscribe(events.EventBookingCreated, refresh)
	bus.Subscribe(events.EventBookingCancelled, refresh)
}

// Start consumes the queue until the context is cancelled.
func (w *ExportWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.queue:
			w.process(ctx, req)
		}
	}
}

func (w *ExportWorker) process(ctx context.Context, req ExportRequest) {
	var err error
	for attempt := 1; attempt <= w.retry.MaxRetries; attempt++ {
		var path string
		path, err = w.Export(ctx, req)
		if err == nil {
			w.logger.Info().Str("path", path).Msg("schedule export written")
			return
		}
		w.logger.Warn().Err(err).Int("attempt", attempt).Msg("schedule export failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry.NextDelay(attempt)):
		}
	}
	w.logger.Error().Err(err).Msg("schedule export dropped after retries")
}

// Export writes an occupancy sheet: one row per room, one column per
// day of the requested range, each cell holding the number of bookings
// touching that day.
func (w *ExportWorker) Export(ctx context.Context, req ExportRequest) (string, error) {
	if req.End.Before(req.Start) {
		return "", fmt.Errorf("invalid export range")
	}
	if err := os.MkdirAll(w.exportPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	rooms, err := w.rooms.FindAll(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting rooms: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		req.Start.Format("2006-01-02"), req.End.Format("2006-01-02")))

	days := daysIn(req.Start, req.End)
	for i, day := range days {
		cell, _ := excelize.CoordinatesToCellName(i+2, 2)
		_ = f.SetCellValue(sheetName, cell, day.Format("2006-01-02"))
	}

	for rowIdx, room := range rooms {
		nameCell, _ := excelize.CoordinatesToCellName(1, rowIdx+3)
		_ = f.SetCellValue(sheetName, nameCell, room.Name)

		for colIdx, day := range days {
			dayStart := day
			dayEnd := day.AddDate(0, 0, 1)
			count := 0
			for _, b := range room.Bookings() {
				if b.Overlaps(dayStart, dayEnd) {
					count++
				}
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+2, rowIdx+3)
			_ = f.SetCellValue(sheetName, cell, count)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 25)

	path := filepath.Join(w.exportPath,
		fmt.Sprintf("schedule_%s_%s.xlsx", req.Start.Format("20060102"), req.End.Format("20060102")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving export: %w", err)
	}
	return path, nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysIn(start, end time.Time) []time.Time {
	var days []time.Time
	day := dayOf(start)
	for !day.After(end) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}
