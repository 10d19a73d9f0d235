// autoclose runs a single auto-close pass over resolved tickets and exits. It is meant for cron
// style schedulers when the API process runs with AUTO_CLOSE_ENABLED=false.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tickettally/ticket-engine/internal/config"
	"github.com/tickettally/ticket-engine/internal/events"
	"github.com/tickettally/ticket-engine/internal/export"
	"github.com/tickettally/ticket-engine/internal/notify"
	"github.com/tickettally/ticket-engine/internal/observability"
	"github.com/tickettally/ticket-engine/internal/persistence"
	"github.com/tickettally/ticket-engine/internal/service"
	"github.com/tickettally/ticket-engine/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var olderThan time.Duration
	var logLevel string
	var unguarded bool

	flagSet := pflag.NewFlagSet("autoclose", pflag.ContinueOnError)
	flagSet.DurationVar(&olderThan, "older-than", cfg.Lifecycle.AutoCloseAfter(), "close tickets resolved longer ago than this")
	flagSet.StringVar(&logLevel, "log-level", cfg.Logger.Level, "log level (debug, info, warn, error)")
	flagSet.BoolVar(&unguarded, "no-lock", false, "skip the redis run lock")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	cfg.Logger.Level = logLevel

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, pg, err := persistence.OpenStore(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	// Creators still hear about their tickets closing when the pass runs out of process.
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Mailer:     notify.NewLogMailer(cfg.Notification.EmailFrom, logger),
		Publisher:  notify.NewRedisPublisher(redis.Client, cfg.Notification.ChannelPrefix),
		Renderer:   export.NewPDFRenderer(),
		Logger:     logger,
		BaseURL:    cfg.App.BaseURL,
	})
	worker.StartNotificationWorker(notifications)

	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		Store:       store,
		Dispatcher:  dispatcher,
		Logger:      logger,
		WorkloadCap: cfg.Lifecycle.WorkloadCap,
	})

	var locker worker.Locker = redis
	if unguarded {
		locker = nil
	}
	closed := worker.NewAutoCloseWorker(assignments, locker, logger, cfg.Lifecycle.AutoCloseInterval(), olderThan).RunOnce(ctx)
	fmt.Println(closed)
	return nil
}
