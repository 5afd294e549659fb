package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	schedulerport "balanceledger/internal/domain/port/scheduler"
	balanceUseCase "balanceledger/internal/domain/usecase/balance"
	"balanceledger/internal/domain/usecase/lock"
	transactionUseCase "balanceledger/internal/domain/usecase/transaction"

	"balanceledger/internal/infrastructure/adapter/api/handler"
	"balanceledger/internal/infrastructure/adapter/api/routes"
	"balanceledger/internal/infrastructure/adapter/database"
	eventsAdapter "balanceledger/internal/infrastructure/adapter/events"
	"balanceledger/internal/infrastructure/adapter/logger"
	"balanceledger/internal/infrastructure/adapter/repository"
	schedulerAdapter "balanceledger/internal/infrastructure/adapter/scheduler"
	timeProvider "balanceledger/internal/infrastructure/adapter/time"
	"balanceledger/internal/infrastructure/config"

	"balanceledger/internal/domain/port/events"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create logger
	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	appLogger.SetLevel(logger.ParseLevel(cfg.Logger.Level))
	defer appLogger.Flush()

	// Initialize time provider
	tp := timeProvider.NewRealTimeProvider()

	// Setup database configuration
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		RetryAttempts:   cfg.Database.RetryAttempts,
		RetryDelay:      cfg.Database.RetryDelay,
	}

	// Connect to the database
	dbManager := database.NewManager(dbConfig, appLogger, tp)
	if _, err := dbManager.Connect(); err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			appLogger.Error("Failed to close database", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Initialize repositories
	aggregateRepo := repository.NewAggregateRepository(dbManager.DB(), tp, appLogger)
	transactionRepo := repository.NewTransactionRepository(dbManager.DB(), appLogger)

	// Initialize the delayed-action scheduler. Redis when configured,
	// in-memory otherwise.
	var actionScheduler schedulerport.DelayedActionScheduler
	var actionStore schedulerAdapter.Store
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			appLogger.Error("Failed to connect to redis", map[string]any{
				"error": err.Error(),
				"addr":  cfg.Redis.Addr,
			})
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				appLogger.Error("Failed to close redis client", map[string]any{
					"error": err.Error(),
				})
			}
		}()
		redisScheduler := schedulerAdapter.NewRedis(redisClient, appLogger)
		actionScheduler = redisScheduler
		actionStore = redisScheduler
	} else {
		appLogger.Warn("Redis not configured, using in-memory delayed actions", nil)
		inMem := schedulerAdapter.NewInMem()
		actionScheduler = inMem
		actionStore = inMem
	}

	// Initialize the event publisher. NATS when configured.
	var publisher events.Publisher
	if cfg.Nats.URL != "" {
		natsConn, err := nats.Connect(cfg.Nats.URL)
		if err != nil {
			appLogger.Error("Failed to connect to nats", map[string]any{
				"error": err.Error(),
				"url":   cfg.Nats.URL,
			})
			os.Exit(1)
		}
		defer natsConn.Close()
		publisher = eventsAdapter.NewNatsPublisher(natsConn, appLogger)
	} else {
		appLogger.Warn("NATS not configured, transaction events disabled", nil)
		publisher = eventsAdapter.NewNoopPublisher()
	}

	// Initialize use cases
	guard := lock.NewGuard(aggregateRepo, actionScheduler, tp, appLogger, lock.Config{
		UnlockDelay: cfg.Lock.UnlockDelay,
	})

	transactionService := transactionUseCase.NewService(
		guard,
		aggregateRepo,
		transactionRepo,
		publisher,
		tp,
		appLogger,
		transactionUseCase.RetryConfig{
			MaxAttempts: cfg.Transaction.MaxRetries,
			BaseDelay:   cfg.Transaction.RetryBaseDelay,
			MaxDelay:    cfg.Transaction.RetryMaxDelay,
		},
	)

	balanceUseCaseImpl := balanceUseCase.NewUseCase(aggregateRepo, appLogger)

	// Start the safety-net poller. It fires abandoned unlock actions back
	// into the guard on the scheduler path.
	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()

	poller := schedulerAdapter.NewPoller(
		actionStore,
		func(ctx context.Context, name string, payload []byte) error {
			userID, err := lock.DecodeUnlockPayload(payload)
			if err != nil {
				appLogger.Error("Dropping malformed unlock action", map[string]any{
					"action": name,
					"error":  err.Error(),
				})
				return nil
			}
			return guard.Release(ctx, userID, lock.TriggerScheduler)
		},
		cfg.Lock.PollInterval,
		tp,
		appLogger,
	)
	go poller.Run(pollerCtx)

	// Initialize API handlers
	transactionHandler := handler.NewTransactionHandler(transactionService, appLogger)
	balanceHandler := handler.NewBalanceHandler(balanceUseCaseImpl, appLogger)

	// Initialize Gin router
	router := gin.New()

	// Setup middlewares
	routes.SetupMiddlewares(router, appLogger)

	// Setup routes
	routes.SetupRoutes(router, transactionHandler, balanceHandler)

	// Create HTTP server with configurable timeout values
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		appLogger.Info("Starting server", map[string]any{
			"addr": server.Addr,
			"env":  cfg.Environment,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)

	// Stop dispatching safety-net unlocks. Pending actions stay due in the
	// store and fire on the next start.
	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{
			"error": err.Error(),
		})
	}

	appLogger.Info("Server exited gracefully", nil)
}
