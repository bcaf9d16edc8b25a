package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roombook/internal/api"
	"roombook/internal/clock"
	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/logging"
	"roombook/internal/metrics"
	"roombook/internal/models"
	"roombook/internal/notify"
	"roombook/internal/repository"
	"roombook/internal/service"
	"roombook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	metrics.Register()

	rooms, cleanup, err := initRoomRepository(cfg, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := seedRooms(cfg, rooms, logger); err != nil {
		return err
	}

	bus := events.NewEventBus()
	notifier := notify.NewBusNotifier(bus)

	svc := service.NewBookingService(clock.NewSystem(), rooms, notifier, bus, logger)

	exportWorker := worker.NewExportWorker(rooms, cfg.Exports.Path, worker.RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}, logger)
	exportWorker.WatchBookings(bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go exportWorker.Start(ctx)

	if cfg.Monitoring.PrometheusEnabled {
		go servePrometheus(cfg.Monitoring.PrometheusPort, logger)
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("HTTP API is disabled in config; running background workers only")
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		return nil
	}

	httpServer := api.NewHTTPServer(cfg.API, svc, rooms, exportWorker, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func initRoomRepository(cfg *config.Config, logger *zerolog.Logger) (domain.RoomRepository, func(), error) {
	var store domain.RoomRepository
	var cleanup func()

	switch cfg.Database.Driver {
	case "memory":
		store = repository.NewMemoryRoomRepository()
	default:
		db, err := database.NewDB(cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init database: %w", err)
		}
		cleanup = func() { _ = db.Close() }
		store = db
		logger.Info().Str("path", cfg.Database.Path).Msg("sqlite room store ready")
	}

	if cfg.Redis.Enabled {
		client := repository.NewRedisClient(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := repository.Ping(pingCtx, client); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using local store only")
			_ = client.Close()
			return store, cleanup, nil
		}

		primary := repository.NewRedisRoomRepository(client)
		store = repository.NewFailoverRoomRepository(primary, store, logger)
		prev := cleanup
		cleanup = func() {
			_ = client.Close()
			if prev != nil {
				prev()
			}
		}
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis room store with local failover")
	}

	return store, cleanup, nil
}

func seedRooms(cfg *config.Config, rooms domain.RoomRepository, logger *zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, seed := range cfg.Rooms {
		existing, err := rooms.FindByID(ctx, seed.ID)
		if err != nil {
			return fmt.Errorf("seed rooms: %w", err)
		}
		if existing != nil {
			continue
		}
		if err := rooms.Save(ctx, models.NewRoom(seed.ID, seed.Name)); err != nil {
			return fmt.Errorf("seed rooms: %w", err)
		}
		logger.Info().Str("room_id", seed.ID).Str("name", seed.Name).Msg("room registered")
	}
	return nil
}

func servePrometheus(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("prometheus metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("prometheus server stopped")
	}
}
