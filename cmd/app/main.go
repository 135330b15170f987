package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/BuzzLyutic/taskhub/internal/auth"
	"github.com/BuzzLyutic/taskhub/internal/config"
	"github.com/BuzzLyutic/taskhub/internal/database"
	"github.com/BuzzLyutic/taskhub/internal/handler"
	"github.com/BuzzLyutic/taskhub/internal/metrics"
	"github.com/BuzzLyutic/taskhub/internal/middleware"
	"github.com/BuzzLyutic/taskhub/internal/realtime"
	"github.com/BuzzLyutic/taskhub/internal/repo"
	"github.com/BuzzLyutic/taskhub/internal/server"
	"github.com/BuzzLyutic/taskhub/internal/service"
	"github.com/BuzzLyutic/taskhub/internal/worker"
)

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	// Подключаем логгер
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Подключаем хранилище
	users, tasks, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	hub := realtime.NewHub(logger, collector, cfg.AllowedOrigins)
	var publisher service.Publisher = hub

	// Несколько экземпляров обмениваются событиями через Redis
	var relay *worker.Relay
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		relay = worker.NewRelay(rdb, cfg.RedisChannel, hub, logger)
		if err := relay.Start(ctx); err != nil {
			logger.Fatal("Failed to start event relay", zap.Error(err))
		}
		publisher = realtime.NewRedisPublisher(rdb, cfg.RedisChannel, hub, logger, collector)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	cookie := auth.CookieConfig{Name: cfg.CookieName, Secure: cfg.CookieSecure}
	authService := service.NewAuthService(users, auth.NewPasswordHasher(cfg.BcryptCost), tokens, logger)
	taskService := service.NewTaskService(tasks, publisher, logger)

	limiterCfg := middleware.DefaultRateLimiterConfig()
	limiterCfg.Rate = rate.Limit(cfg.AuthRatePerMin / 60.0)
	limiterCfg.Burst = cfg.AuthRateBurst
	limiter := middleware.NewRateLimiter(limiterCfg, logger)
	defer limiter.Stop()

	router := server.NewRouter(server.Deps{
		Auth:           handler.NewAuthHandler(authService, cookie, logger),
		Tasks:          handler.NewTaskHandler(taskService, logger),
		Realtime:       hub,
		Metrics:        metrics.Handler(reg),
		Sessions:       authService,
		Cookie:         cookie,
		AuthLimiter:    limiter,
		Requests:       collector,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{ // Создаем сервер
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if relay != nil {
		relay.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.UserRepository, repo.TaskRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, nil, nil, err
		}

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("ping: %w", err)
		}
		logger.Info("Successfully connected to PostgreSQL")
		return repo.NewUserRepo(pool), repo.NewTaskRepo(pool), pool.Close, nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect: %w", err)
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		if err := client.Ping(ctx, nil); err != nil {
			closeFn()
			return nil, nil, nil, fmt.Errorf("ping: %w", err)
		}

		db := client.Database(cfg.MongoDatabase)
		if err := repo.EnsureMongoIndexes(ctx, db); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		logger.Info("Successfully connected to MongoDB")
		return repo.NewMongoUserRepo(db), repo.NewMongoTaskRepo(db, logger), closeFn, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
