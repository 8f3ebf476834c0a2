package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/config"
	"github.com/AnshRaj112/laundry-backend/internal/database"
	"github.com/AnshRaj112/laundry-backend/internal/logging"
	"github.com/AnshRaj112/laundry-backend/internal/routes"
	"github.com/AnshRaj112/laundry-backend/internal/services"
	"github.com/AnshRaj112/laundry-backend/internal/storage"
	"github.com/AnshRaj112/laundry-backend/pkg/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.TokenSecret == config.DefaultTokenSecret {
		logger.Warn("TOKEN_SECRET is the built-in default; set it before deploying")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		if err := database.ConnectRedis(ctx, cfg.RedisURI, logger); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = database.DisconnectRedis() }()
		redisClient = database.RedisClient
	}

	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	tokens, err := newTokenService(cfg)
	if err != nil {
		return err
	}

	users := services.NewCredentialStore(backend, time.Now)
	if err := users.Load(ctx); err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	store := services.NewOrderStore(backend, logger)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load orders: %w", err)
	}

	hub := services.NewHub(services.DefaultPeerQueue, logger)
	var notifier services.Notifier = hub
	if cfg.RealtimeRelay == config.RelayRedis {
		relay := services.NewRedisRelay(redisClient, hub, logger)
		relay.Start(ctx)
		notifier = relay
		logger.Info("realtime relay enabled", zap.String("channel", services.RelayChannel))
	}

	orders := services.NewOrderService(store, services.OrderServiceOptions{
		Notifier:          notifier,
		StrictTransitions: cfg.StrictOrderTransitions,
		Logger:            logger,
	})

	deps := routes.Deps{
		Config: cfg,
		Auth:   services.NewAuthGateway(users, tokens, logger),
		Orders: orders,
		Hub:    hub,
		Logger: logger,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("laundry backend listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Environment),
			zap.String("storage", cfg.StorageDriver),
			zap.Strings("origins", cfg.AllowedOrigins),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openBackend connects the storage driver named by STORAGE_DRIVER. Redis is
// connected by run when needed.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Backend, func(), error) {
	noop := func() {}

	switch cfg.StorageDriver {
	case storage.DriverFile:
		fb, err := storage.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file storage", zap.String("dir", cfg.DataDir))
		return fb, noop, nil

	case storage.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return storage.NewMemoryBackend(), noop, nil

	case storage.DriverPostgres:
		if err := database.ConnectPostgres(ctx, cfg.PostgresURI, logger); err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return storage.NewPostgresBackend(database.PostgresDB), func() { _ = database.DisconnectPostgres() }, nil

	case storage.DriverRedis:
		return storage.NewRedisBackend(database.RedisClient), noop, nil

	case storage.DriverMongo:
		if err := database.Connect(ctx, cfg.MongoURI, logger); err != nil {
			return nil, nil, fmt.Errorf("connect mongodb: %w", err)
		}
		return storage.NewMongoBackend(database.DB), func() { _ = database.Disconnect() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func newTokenService(cfg *config.Config) (*services.TokenService, error) {
	if cfg.TokenFormat == config.TokenFormatSealed {
		key, err := utils.ParseEncryptionKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("ENCRYPTION_KEY: %w", err)
		}
		return services.NewSealedTokenService(key, time.Now)
	}
	return services.NewHMACTokenService(cfg.TokenSecret, time.Now)
}
