// Package notification provides the notification bounded context module.
package notification

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dentalcrm_backend/internal/events"
	apphttp "dentalcrm_backend/internal/http"
	leadsrepo "dentalcrm_backend/internal/leads/repository"
	"dentalcrm_backend/internal/notification/handler"
	"dentalcrm_backend/internal/notification/repository"
	"dentalcrm_backend/internal/notification/service"
	"dentalcrm_backend/internal/scheduler"
	"dentalcrm_backend/platform/logger"
	"dentalcrm_backend/platform/validator"
)

// ReminderEnqueuer hands day-before reminder work to the job queue, where it
// survives a process restart. A nil enqueuer means no queue is configured and
// reminders are written inline.
type ReminderEnqueuer interface {
	EnqueueAppointmentReminder(ctx context.Context, payload scheduler.AppointmentReminderPayload) error
}

type reminderScheduler interface {
	ScheduleAppointmentReminder(ctx context.Context, leadID, userID int64, patientName string, appointmentDate time.Time) error
}

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the notification module and subscribes it to appointment
// scheduling events so a day-before reminder is written whenever a lead gets
// an appointment date.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, queue ReminderEnqueuer, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leadsrepo.New(pool))

	eventBus.Subscribe(events.AppointmentScheduled{}.EventName(), appointmentScheduledHandler(queue, svc, log))

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// appointmentScheduledHandler routes the reminder through the job queue when
// one is available, falling back to an inline write when the queue is absent
// or the enqueue fails.
func appointmentScheduledHandler(queue ReminderEnqueuer, reminders reminderScheduler, log *logger.Logger) events.HandlerFunc {
	return func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.AppointmentScheduled)
		if !ok {
			return nil
		}

		if queue != nil {
			err := queue.EnqueueAppointmentReminder(ctx, scheduler.AppointmentReminderPayload{
				LeadID:          e.LeadID,
				UserID:          e.UserID,
				PatientName:     e.PatientName,
				AppointmentDate: e.AppointmentDate,
			})
			if err == nil {
				return nil
			}
			log.Error("appointment reminder enqueue failed, writing inline", "error", err, "leadId", e.LeadID)
		}

		if err := reminders.ScheduleAppointmentReminder(ctx, e.LeadID, e.UserID, e.PatientName, e.AppointmentDate); err != nil {
			log.Error("appointment reminder scheduling failed", "error", err, "leadId", e.LeadID)
		}
		return nil
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notifications"
}

// Service returns the notification service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts notification routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
