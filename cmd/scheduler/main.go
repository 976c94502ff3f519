package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dentalcrm_backend/internal/email"
	leadsrepo "dentalcrm_backend/internal/leads/repository"
	notifrepo "dentalcrm_backend/internal/notification/repository"
	notifsvc "dentalcrm_backend/internal/notification/service"
	"dentalcrm_backend/internal/scheduler"
	"dentalcrm_backend/internal/whatsapp"
	"dentalcrm_backend/platform/config"
	"dentalcrm_backend/platform/db"
	"dentalcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	leadStore := leadsrepo.New(pool)
	notifStore := notifrepo.New(pool)

	channel := selectChannel(cfg, log)
	log.Info("notification channel selected", "channel", channel.Name())

	generator := scheduler.NewReminderGenerator(leadStore, notifStore, cfg.GetReminderSlots(), log)
	dispatcher := scheduler.NewDispatcher(notifStore, leadStore, channel, log)
	reminders := notifsvc.New(notifStore, leadStore)

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, generator, dispatcher, reminders, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

// selectChannel prefers WhatsApp, falls back to SMTP, and finally to the log
// channel so the dispatcher always has a delivery path.
func selectChannel(cfg *config.Config, log *logger.Logger) scheduler.Channel {
	if client := whatsapp.NewClient(cfg, log); client != nil {
		return client
	}
	if sender := email.NewSender(cfg); sender != nil {
		return sender
	}

	log.Warn("no WhatsApp or SMTP channel configured; notifications will only be logged")
	return scheduler.NewLogChannel(log)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
