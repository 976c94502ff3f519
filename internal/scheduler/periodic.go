package scheduler

import (
	"context"
	"fmt"
	"time"

	"dentalcrm_backend/platform/config"
	"dentalcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic registers the two batch jobs with asynq's cron scheduler: the
// daily reminder generation and the dispatch sweep.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	sched := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.Local,
	})

	reminderTask, err := NewGenerateRemindersTask(GenerateRemindersPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := sched.Register(cfg.GetReminderCronSpec(), reminderTask, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("registering reminder cron: %w", err)
	}

	dispatchTask, err := NewDispatchNotificationsTask(DispatchNotificationsPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := sched.Register(cfg.GetDispatchCronSpec(), dispatchTask, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("registering dispatch cron: %w", err)
	}

	return &Periodic{scheduler: sched, log: log}, nil
}

// Run blocks until the context is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}
