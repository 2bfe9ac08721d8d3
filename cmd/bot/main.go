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
	"coworking/internal/bot"
	"coworking/internal/config"
	"coworking/internal/domain"
	"coworking/internal/events"
	"coworking/internal/logging"
	"coworking/internal/metrics"
	"coworking/internal/models"
	"coworking/internal/notify"
	"coworking/internal/remote"
	"coworking/internal/repository"
	"coworking/internal/service"

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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := logging.Component(baseLogger, "bot-main")

	if err := cfg.ValidateBot(); err != nil {
		logger.Error().Err(err).Msg("Задайте токен бота в config.yaml")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	sessions := initSessionRepository(cfg, redisClient, logger)

	eventBus := events.NewEventBus()
	eventBus.OnError(func(ev *events.Event, err error) {
		logger.Warn().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})
	if publisher := initPublisher(ctx, cfg, logger); publisher != nil {
		publisher.Attach(eventBus)
		defer func() { _ = publisher.Close() }()
	}

	remoteClient := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	if redisClient != nil {
		remoteClient.UseRedisCache(redisClient, cfg.Remote.CacheTTL)
	}

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

	if cfg.API.HTTP.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, engine, logging.Component(baseLogger, "http"))
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	authClient := auth.NewClient(cfg.Remote.BaseURL, cfg.Auth, cfg.Remote.Timeout)
	chats := service.NewChatService(engine, remoteClient, sessions, eventBus, logging.Component(baseLogger, "chats"))
	chats.UseChecker(authClient)

	return startBot(ctx, cfg, chats, engine, authClient, sessions, logger)
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
		logger.Warn().Err(err).Msg("Redis unavailable, sessions fall back to memory")
	}
	return redisClient
}

// initSessionRepository keeps sessions in Redis when it is configured, with an in-memory fallback.
func initSessionRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SessionRepository {
	fallback := repository.NewMemorySessionRepository(cfg.Session.TTL)
	if redisClient == nil {
		return fallback
	}
	primary := repository.NewRedisSessionRepository(redisClient, cfg.Session.TTL)
	return repository.NewFailoverSessionRepository(primary, fallback, logger)
}

func initPublisher(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *notify.Publisher {
	if cfg.RabbitMQ.URL == "" {
		return nil
	}
	publisher, err := notify.DialWithRetry(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, notify.DefaultRetryPolicy, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("RabbitMQ unavailable, booking notifications disabled")
		return nil
	}
	logger.Info().Str("queue", cfg.RabbitMQ.Queue).Msg("RabbitMQ connected")
	return publisher
}

// loadSpaceOverrides reads optional titles and notes for coworking spaces.
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

func startBot(
	ctx context.Context,
	cfg *config.Config,
	chats *service.ChatService,
	engine *availability.Engine,
	authClient *auth.Client,
	limiter bot.RateLimiter,
	logger *zerolog.Logger,
) error {
	botWrapper, err := bot.NewBotWrapper(cfg.Telegram)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	tgService := service.NewTelegramService(botWrapper)

	telegramBot, err := bot.NewBot(
		tgService, cfg, chats, engine,
		authClient, limiter, bot.NewMetrics(), logger,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)
	telegramBot.Stop()

	logger.Info().Msg("Shutdown complete.")
	return nil
}
