package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coworking/internal/api"
	"coworking/internal/auth"
	"coworking/internal/availability"
	"coworking/internal/config"
	"coworking/internal/events"
	"coworking/internal/logging"
	"coworking/internal/metrics"
	"coworking/internal/models"
	"coworking/internal/remote"
	"coworking/internal/repository"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, baseLogger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "api-main")

	if !cfg.API.HTTP.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	remoteClient := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	if redisClient != nil {
		remoteClient.UseRedisCache(redisClient, cfg.Remote.CacheTTL)
	}

	eventBus := events.NewEventBus()
	eventBus.Subscribe(events.EventSeatStatusChanged, func(ev *events.Event) error {
		var payload events.SeatStatusChangedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}
		logger.Info().
			Int64("seat_id", payload.SeatID).
			Str("from", payload.From).
			Str("to", payload.To).
			Msg("seat status changed")
		return nil
	})

	engine := availability.NewEngine(
		remoteClient,
		auth.Static(cfg.Remote.ServiceToken),
		eventBus,
		cfg.Poll.Interval,
		logging.Component(baseLogger, "availability"),
	)
	engine.SetOverrides(loadSpaceOverrides(cfg, logger))
	go engine.Run(ctx)

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, engine, logging.Component(baseLogger, "http"))

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API.GRPC, engine, baseLogger)
		if err != nil {
			return fmt.Errorf("init grpc health: %w", err)
		}
	}
	return startServer(ctx, httpServer, grpcServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, baseLogger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func loadSpaceOverrides(cfg *config.Config, logger *zerolog.Logger) []models.SpaceOverride {
	path := os.Getenv("SPACES_PATH")
	if path == "" {
		path = cfg.SpacesFile
	}
	if path == "" {
		path = "configs/spaces.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("spaces_path", path).Msg("read spaces")
		}
		return nil
	}

	var spacesConfig struct {
		Spaces []models.SpaceOverride `yaml:"spaces"`
	}
	if err := yaml.Unmarshal(data, &spacesConfig); err != nil {
		logger.Warn().Err(err).Str("spaces_path", path).Msg("parse spaces")
		return nil
	}
	return spacesConfig.Spaces
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, grpcServer *api.GRPCServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	if grpcServer != nil {
		go grpcServer.WatchReadiness(ctx, time.Second)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc_enabled", grpcServer != nil).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
