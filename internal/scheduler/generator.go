package scheduler

import (
	"context"
	"fmt"
	"time"

	leadsrepo "dentalcrm_backend/internal/leads/repository"
	"dentalcrm_backend/internal/leads/transport"
	notifrepo "dentalcrm_backend/internal/notification/repository"
	"dentalcrm_backend/platform/config"
	"dentalcrm_backend/platform/logger"
)

// reminderTolerance bounds the idempotency probe: a reminder within this
// window of a slot counts as that slot's reminder, so re-runs do not insert
// duplicates.
const reminderTolerance = time.Minute

// LeadSource lists the leads the generator walks.
type LeadSource interface {
	ListScheduledBetween(ctx context.Context, from, to time.Time, status string) ([]leadsrepo.Lead, error)
}

// ReminderSink is the notification-side surface the generator writes through.
type ReminderSink interface {
	ReminderExistsNear(ctx context.Context, leadID int64, target time.Time, tolerance time.Duration) (bool, error)
	Create(ctx context.Context, params notifrepo.CreateParams) (notifrepo.Notification, error)
}

// ReminderGenerator materializes one appointment reminder per configured
// time-of-day slot for every lead with a confirmed appointment tomorrow.
type ReminderGenerator struct {
	leads LeadSource
	sink  ReminderSink
	slots []config.ReminderSlot
	log   *logger.Logger
	now   func() time.Time
}

func NewReminderGenerator(leads LeadSource, sink ReminderSink, slots []config.ReminderSlot, log *logger.Logger) *ReminderGenerator {
	if len(slots) == 0 {
		slots = config.DefaultReminderSlots()
	}
	return &ReminderGenerator{
		leads: leads,
		sink:  sink,
		slots: slots,
		log:   log,
		now:   time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (g *ReminderGenerator) SetClock(now func() time.Time) {
	g.now = now
}

// Run executes one generation pass. The target window is tomorrow's calendar
// day in the process-local timezone; only leads with status Agendado get
// reminders. Each reminder's scheduledFor is the run day at the slot time.
// A failed listing aborts the run; a failed insert is logged and the loop
// moves on to the next lead.
func (g *ReminderGenerator) Run(ctx context.Context) (int, error) {
	now := g.now()
	year, month, day := now.Date()
	from := time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	leads, err := g.leads.ListScheduledBetween(ctx, from, to, string(transport.StatusAgendado))
	if err != nil {
		g.log.DatabaseError("list tomorrow's appointments", err)
		return 0, fmt.Errorf("listing tomorrow's appointments: %w", err)
	}

	g.log.JobEvent("reminder_generator", "started", len(leads))

	created := 0
	for _, lead := range leads {
		if lead.AppointmentDate == nil {
			continue
		}

		n, err := g.generateForLead(ctx, lead)
		created += n
		if err != nil {
			g.log.Error("reminder generation failed for lead",
				"error", err, "leadId", lead.ID)
			continue
		}
	}

	g.log.JobEvent("reminder_generator", "completed", created)
	return created, nil
}

func (g *ReminderGenerator) generateForLead(ctx context.Context, lead leadsrepo.Lead) (int, error) {
	now := g.now()
	year, month, day := now.Date()
	appointmentAt := lead.AppointmentDate.In(now.Location())

	created := 0
	for _, slot := range g.slots {
		slotAt := time.Date(year, month, day, slot.Hour, slot.Minute, 0, 0, now.Location())

		exists, err := g.sink.ReminderExistsNear(ctx, lead.ID, slotAt, reminderTolerance)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		_, err = g.sink.Create(ctx, notifrepo.CreateParams{
			LeadID:       lead.ID,
			UserID:       lead.UserID,
			Type:         notifrepo.TypeAppointmentReminder,
			Title:        fmt.Sprintf("Lembrete: Consulta de %s", lead.TreatmentType),
			Message:      fmt.Sprintf("Consulta com %s amanhã às %s", lead.PatientName, appointmentAt.Format("15:04")),
			ScheduledFor: slotAt,
		})
		if err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}
