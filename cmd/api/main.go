package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/service-crm/internal/api/http"
	"github.com/spec-kit/service-crm/internal/api/http/handlers"
	"github.com/spec-kit/service-crm/internal/auth"
	"github.com/spec-kit/service-crm/internal/cache"
	"github.com/spec-kit/service-crm/internal/config"
	"github.com/spec-kit/service-crm/internal/events"
	"github.com/spec-kit/service-crm/internal/observability"
	"github.com/spec-kit/service-crm/internal/persistence"
	"github.com/spec-kit/service-crm/internal/repository"
	"github.com/spec-kit/service-crm/internal/service"
	"github.com/spec-kit/service-crm/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("invalid redis configuration", zap.Error(err))
	}
	defer redis.Close()

	pool := pg.PoolHandle()
	caseRepo := repository.NewCaseRepository(pool)
	historyRepo := repository.NewCaseHistoryRepository(pool)
	dispatchRepo := repository.NewDispatchRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	engineerRepo := repository.NewEngineerRepository(pool)
	contactRepo := repository.NewContactRepository(pool)

	metrics := observability.NewMetrics("service_crm")
	dashboardCache := cache.NewDashboardCache(redis.Client, cfg.Cache.KeyPrefix, cfg.Cache.DashboardTTL())
	dispatcher := events.NewInMemoryDispatcher()

	var notifier service.Notifier = service.NewLogNotifier(logger)
	if cfg.Notification.Channel != "" {
		notifier = service.NewRedisNotifier(redis.Client, cfg.Notification.Channel)
	}
	notifications := service.NewNotificationService(dispatcher, notifier, logger, cfg.Notification)

	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:     caseRepo,
		HistoryRepo:  historyRepo,
		DispatchRepo: dispatchRepo,
		FeedbackRepo: feedbackRepo,
		ProductRepo:  productRepo,
		CatalogRepo:  catalogRepo,
		EngineerRepo: engineerRepo,
		Transactor:   repository.NewTransactor(pool),
		Dispatcher:   dispatcher,
		Cache:        dashboardCache,
		Metrics:      metrics,
		Logger:       logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		CaseRepo:     caseRepo,
		FeedbackRepo: feedbackRepo,
		DispatchRepo: dispatchRepo,
		ProductRepo:  productRepo,
		CatalogRepo:  catalogRepo,
		EngineerRepo: engineerRepo,
		Views:        caseService,
		Cache:        dashboardCache,
		Metrics:      metrics,
		Logger:       logger,
	})

	var monitor *worker.SLAMonitor
	if cfg.SLA.MonitorEnabled {
		monitor, err = worker.NewSLAMonitor(worker.SLAMonitorDependencies{
			CaseRepo:   caseRepo,
			Dedupe:     redis.Client,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
			Config:     cfg.SLA,
			KeyPrefix:  cfg.Cache.KeyPrefix,
		})
		if err != nil {
			logger.Fatal("failed to configure sla monitor", zap.Error(err))
		}
	}
	workers := worker.New(notifications, monitor, logger)
	if err := workers.Start(); err != nil {
		logger.Fatal("failed to start workers", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Portal:         handlers.NewPortalHandler(caseService, contactRepo),
		Staff:          handlers.NewStaffHandler(caseService, dashboardService),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	workers.Stop(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
