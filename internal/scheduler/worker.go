package scheduler

import (
	"context"
	"fmt"
	"time"

	"dentalcrm_backend/platform/config"
	"dentalcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ReminderScheduler writes the single day-before reminder for a lead whose
// appointment date was just set.
type ReminderScheduler interface {
	ScheduleAppointmentReminder(ctx context.Context, leadID, userID int64, patientName string, appointmentDate time.Time) error
}

// Worker consumes the batch job queue. Handlers return their error to asynq
// so a fatal run (storage unavailable) is retried by the queue rather than
// silently dropped.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	generator  *ReminderGenerator
	dispatcher *Dispatcher
	reminders  ReminderScheduler
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, generator *ReminderGenerator, dispatcher *Dispatcher, reminders ReminderScheduler, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		generator:  generator,
		dispatcher: dispatcher,
		reminders:  reminders,
		log:        log,
	}

	mux.HandleFunc(TaskGenerateReminders, w.handleGenerateReminders)
	mux.HandleFunc(TaskDispatchNotifications, w.handleDispatchNotifications)
	mux.HandleFunc(TaskAppointmentReminder, w.handleAppointmentReminder)

	return w, nil
}

func (w *Worker) handleGenerateReminders(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseGenerateRemindersPayload(task); err != nil {
		return err
	}

	_, err := w.generator.Run(ctx)
	return err
}

func (w *Worker) handleAppointmentReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAppointmentReminderPayload(task)
	if err != nil {
		return err
	}

	return w.reminders.ScheduleAppointmentReminder(ctx, payload.LeadID, payload.UserID, payload.PatientName, payload.AppointmentDate)
}

func (w *Worker) handleDispatchNotifications(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseDispatchNotificationsPayload(task); err != nil {
		return err
	}

	_, err := w.dispatcher.Run(ctx)
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
