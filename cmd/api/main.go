package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/maintenance-service/internal/api/http"
	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/mq"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/persistence"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/sla"
	"github.com/spec-kit/maintenance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var publisher mq.Publisher
	if cfg.Rabbit.URL != "" {
		rabbit, err := mq.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			logger.Warn("rabbitmq unavailable; notifications limited to logs", zap.Error(err))
		} else {
			publisher = rabbit
			defer rabbit.Close() //nolint:errcheck
		}
	}

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	propertyRepo := repository.NewPropertyRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	eventRepo := repository.NewEventRepository(pool)

	calculator := sla.NewCalculator(cfg.SLA.CalculatorConfig())
	machine := lifecycle.NewMachine(calculator, lifecycle.Policy{
		LandlordOverride: cfg.Workflow.LandlordOverride,
	}, nil)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(logger, publisher, cfg.Notification)
	notifications.Register(dispatcher)

	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  requestRepo,
		EventRepo:    eventRepo,
		PropertyRepo: propertyRepo,
		CategoryRepo: categoryRepo,
		Dispatcher:   dispatcher,
		Machine:      machine,
		Calculator:   calculator,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(accountRepo, tokenManager, cfg.Auth.BcryptCost)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, accountRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Accounts:       handlers.NewAccountsHandler(authService),
		Requests:       handlers.NewRequestsHandler(requestService, categoryRepo),
		Landlord:       handlers.NewLandlordHandler(requestService, propertyRepo, accountRepo),
		Caretaker:      handlers.NewCaretakerHandler(requestService),
		Admin:          handlers.NewAdminHandler(requestService),
		AuthMiddleware: authMiddleware,
	})

	if cfg.Monitor.Enabled {
		monitor := worker.NewSLAMonitor(worker.SLAMonitorConfig{
			Requests:   requestRepo,
			Calculator: calculator,
			Redis:      redis,
			Dispatcher: dispatcher,
			Logger:     logger,
			Interval:   cfg.Monitor.Interval(),
			ScanLimit:  cfg.Monitor.ScanLimit,
		})
		go monitor.Run(ctx)
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
