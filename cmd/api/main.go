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

	"github.com/tickettally/ticket-engine/internal/api/dto"
	httptransport "github.com/tickettally/ticket-engine/internal/api/http"
	"github.com/tickettally/ticket-engine/internal/api/http/handlers"
	"github.com/tickettally/ticket-engine/internal/auth"
	"github.com/tickettally/ticket-engine/internal/config"
	"github.com/tickettally/ticket-engine/internal/events"
	"github.com/tickettally/ticket-engine/internal/export"
	"github.com/tickettally/ticket-engine/internal/notify"
	"github.com/tickettally/ticket-engine/internal/observability"
	"github.com/tickettally/ticket-engine/internal/persistence"
	"github.com/tickettally/ticket-engine/internal/service"
	"github.com/tickettally/ticket-engine/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	store, pg, err := persistence.OpenStore(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	renderer := export.NewPDFRenderer()
	mailer := notify.NewLogMailer(cfg.Notification.EmailFrom, logger)

	slaService := service.NewSLAService(service.SLADependencies{Store: store, Logger: logger})
	if seed, err := config.LoadSLASeed(cfg.Lifecycle.SLASeedFile); err != nil {
		logger.Warn("sla seed not loaded", zap.String("path", cfg.Lifecycle.SLASeedFile), zap.Error(err))
	} else if inserted, err := slaService.Seed(ctx, seed); err != nil {
		logger.Fatal("failed to seed sla configs", zap.Error(err))
	} else if inserted > 0 {
		logger.Info("sla configs seeded", zap.Int("inserted", inserted))
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		SLA:         slaService,
		WorkloadCap: cfg.Lifecycle.WorkloadCap,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store:       store,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		WorkloadCap: cfg.Lifecycle.WorkloadCap,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Mailer:     mailer,
		Publisher:  notify.NewRedisPublisher(redis.Client, cfg.Notification.ChannelPrefix),
		Renderer:   renderer,
		SLA:        slaService,
		Logger:     logger,
		Metrics:    metrics,
		BaseURL:    cfg.App.BaseURL,
	})
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{Store: store, Logger: logger})
	staffService := service.NewStaffService(service.StaffDependencies{
		Store:      store,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	projectService := service.NewProjectService(service.ProjectDependencies{
		Store:  store,
		Mailer: mailer,
		Logger: logger,
	})
	contactService := service.NewContactService(service.ContactDependencies{
		Store:  store,
		Mailer: mailer,
		Inbox:  cfg.Notification.ContactInbox,
		Logger: logger,
	})

	worker.StartNotificationWorker(notificationService)

	stopAutoClose := func() {}
	if cfg.Lifecycle.AutoCloseEnabled {
		autoClose := worker.NewAutoCloseWorker(assignmentService, redis, logger,
			cfg.Lifecycle.AutoCloseInterval(), cfg.Lifecycle.AutoCloseAfter())
		stopAutoClose = autoClose.Start(ctx)
	}

	validate, err := dto.NewValidator()
	if err != nil {
		logger.Fatal("failed to build validator", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, validate),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService, renderer, validate),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		Admin:          handlers.NewAdminHandler(slaService, staffService, assignmentService, validate, cfg.Lifecycle.AutoCloseAfter()),
		Projects:       handlers.NewProjectsHandler(projectService, validate),
		Account:        handlers.NewAccountHandler(authService, ticketService, renderer, validate),
		Contact:        handlers.NewContactHandler(contactService, validate),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Repositories().Users),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	stopAutoClose()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
