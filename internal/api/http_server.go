package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"roombook/internal/apperr"
	"roombook/internal/config"
	"roombook/internal/domain"
	"roombook/internal/metrics"
	"roombook/internal/models"
	"roombook/internal/worker"

	"github.com/rs/zerolog"
)

// ExportScheduler queues schedule exports for background processing.
type ExportScheduler interface {
	Enqueue(ctx context.Context, req worker.ExportRequest) error
}

// HTTPServer exposes the booking service over a small JSON API.
type HTTPServer struct {
	cfg     config.APIConfig
	service domain.BookingService
	rooms   domain.RoomRepository
	exports ExportScheduler
	server  *http.Server
	auth    *HTTPAuth
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, service domain.BookingService, rooms domain.RoomRepository, exports ExportScheduler, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, service: service, rooms: rooms, exports: exports, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/rooms/available", srv.handleAvailableRooms)
	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("/api/v1/bookings/", srv.handleCancelBooking)
	mux.HandleFunc("/api/v1/exports", srv.handleCreateExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the configured HTTP handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type roomResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Bookings []models.Booking `json:"bookings,omitempty"`
}

func roomsToResponse(rooms []*models.Room, withBookings bool) []roomResponse {
	out := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		resp := roomResponse{ID: r.ID, Name: r.Name}
		if withBookings {
			resp.Bookings = r.Bookings()
		}
		out = append(out, resp)
	}
	return out
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooms")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rooms, err := s.rooms.FindAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": roomsToResponse(rooms, true)})
}

func (s *HTTPServer) handleAvailableRooms(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooms_available")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, err := parseTimeParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rooms, err := s.service.GetAvailableRooms(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": roomsToResponse(rooms, false)})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_create")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type request struct {
		RoomID string    `json:"room_id"`
		Start  time.Time `json:"start"`
		End    time.Time `json:"end"`
	}

	var body request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booked, err := s.service.BookRoom(r.Context(), body.RoomID, body.Start, body.End)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !booked {
		writeJSON(w, http.StatusConflict, map[string]any{"booked": false})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"booked": true})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_cancel")
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/bookings/"
	bookingID := strings.TrimPrefix(r.URL.Path, prefix)
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" || strings.Contains(bookingID, "/") {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	cancelled, err := s.service.CancelBooking(r.Context(), bookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !cancelled {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

func (s *HTTPServer) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("exports_create")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exports == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return
	}

	type request struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	var body request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Start.IsZero() || body.End.IsZero() || body.End.Before(body.Start) {
		writeError(w, http.StatusBadRequest, "a valid start/end range is required")
		return
	}

	if err := s.exports.Enqueue(r.Context(), worker.ExportRequest{Start: body.Start, End: body.End}); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s; expected RFC 3339 timestamp", name)
	}
	return t, nil
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsInvalidArgument(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case apperr.IsInvalidState(err), apperr.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
