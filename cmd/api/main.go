package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/intern-service/internal/api/http"
	"github.com/spec-kit/intern-service/internal/api/http/handlers"
	"github.com/spec-kit/intern-service/internal/auth"
	"github.com/spec-kit/intern-service/internal/config"
	"github.com/spec-kit/intern-service/internal/events"
	"github.com/spec-kit/intern-service/internal/observability"
	"github.com/spec-kit/intern-service/internal/persistence"
	"github.com/spec-kit/intern-service/internal/repository"
	"github.com/spec-kit/intern-service/internal/service"
	"github.com/spec-kit/intern-service/internal/storage"
	"github.com/spec-kit/intern-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(*cfg)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	files, err := storage.NewLocalStore(cfg.Upload)
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))
	worker.StartEventCounter(dispatcher, metrics)

	identityService := service.NewIdentityService(*cfg, service.IdentityDependencies{
		UserRepo:       userRepo,
		AssignmentRepo: assignmentRepo,
		Revocations:    redis,
		Locker:         redis,
		Logger:         logger,
	})
	catalogService := service.NewCatalogService(service.CatalogDependencies{
		TaskRepo:   taskRepo,
		Dispatcher: dispatcher,
	})
	assignmentService := service.NewAssignmentService(*cfg, service.AssignmentDependencies{
		UserRepo:       userRepo,
		Catalog:        catalogService,
		AssignmentRepo: assignmentRepo,
		Locker:         redis,
		Dispatcher:     dispatcher,
	})

	if _, err := identityService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(identityService.TokenManager(), redis)

	app := httptransport.NewApp(*cfg, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Users:          handlers.NewUsersHandler(identityService, files),
		Tasks:          handlers.NewTasksHandler(catalogService),
		Assignments:    handlers.NewAssignmentsHandler(assignmentService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
