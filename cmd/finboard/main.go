package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finboard/internal/api"
	"finboard/internal/api/handlers"
	"finboard/internal/repository"
	"finboard/internal/service"
	"finboard/internal/view"
	"finboard/pkg/auth"
	"finboard/pkg/config"
	"finboard/pkg/logger"
	"finboard/pkg/rabbitmq"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// @title Finboard API
// @version 1.0
// @description Personal finance tracker: record expenses, browse them and read a dashboard summary.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting finboard service", zap.String("store", cfg.Store.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.Open(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open transaction store", zap.Error(err))
	}
	defer closeStore()

	var cache *view.Cache
	if cfg.Cache.Enabled {
		cache, err = view.NewCache(cfg.Cache.MaxEntries, cfg.Cache.TTL, logger.Named("view-cache"))
		if err != nil {
			appLogger.Fatal("Failed to create view cache", zap.Error(err))
		}
		defer cache.Close()
	}

	// Identifies this instance's own invalidations when they come back from the broker.
	instanceID := uuid.NewString()

	var invalidator view.Invalidator = view.Nop{}
	var subscriber *rabbitmq.Subscriber
	if cfg.AMQP.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger.Named("amqp"))
		if err != nil {
			appLogger.Fatal("Failed to connect to AMQP broker", zap.Error(err))
		}
		defer publisher.Close()
		invalidator = view.Broadcast{Publisher: publisher, Origin: instanceID}

		// Only a local cache can go stale behind another instance's writes.
		if cache != nil {
			subscriber, err = rabbitmq.NewSubscriber(cfg.AMQP.URL, cfg.AMQP.Exchange, logger.Named("amqp"))
			if err != nil {
				appLogger.Fatal("Failed to subscribe to invalidations", zap.Error(err))
			}
			defer subscriber.Close()
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)

	txService := service.NewTransactionService(
		store,
		cache,
		invalidator,
		service.NewValidator(time.Now),
		&cfg.Listing,
		cfg.Store.Timeout,
		appLogger,
	)

	app := api.SetupRouter(
		handlers.NewTransactionHandler(txService, appLogger),
		handlers.NewDashboardHandler(txService, appLogger),
		handlers.NewCategoryHandler(),
		jwtManager,
		&cfg.Server,
		appLogger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		return app.Listen(addr)
	})
	if subscriber != nil {
		listener := view.Listener{Local: cache, Origin: instanceID}
		g.Go(func() error {
			return subscriber.Consume(gctx, listener.Handle)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Server stopped with error", zap.Error(err))
	}
}
