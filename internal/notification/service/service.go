// Package service mediates notification creation and reads. Creation always
// verifies that the target lead belongs to the caller first, so a foreign
// lead id fails the same way a nonexistent one does.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	leadsrepo "dentalcrm_backend/internal/leads/repository"
	"dentalcrm_backend/internal/notification/repository"
	"dentalcrm_backend/platform/apperr"
)

var validTypes = map[string]struct{}{
	repository.TypeAppointmentReminder: {},
	repository.TypeFollowUp:            {},
	repository.TypeCustom:              {},
}

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Notification, error)
	ListByLead(ctx context.Context, leadID int64, userID int64) ([]repository.Notification, error)
	ListPendingForUser(ctx context.Context, userID int64, now time.Time) ([]repository.Notification, error)
	MarkSent(ctx context.Context, id int64, userID int64, sentAt time.Time) (repository.Notification, error)
	ReminderExistsNear(ctx context.Context, leadID int64, target time.Time, tolerance time.Duration) (bool, error)
}

// LeadReader resolves leads under the same ownership scoping the leads module
// applies. *leadsrepo.Repository satisfies it.
type LeadReader interface {
	GetByID(ctx context.Context, id int64, userID int64) (leadsrepo.Lead, error)
}

type Service struct {
	store Store
	leads LeadReader
	now   func() time.Time
}

func New(store Store, leads LeadReader) *Service {
	return &Service{store: store, leads: leads, now: time.Now}
}

// SetClock overrides the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type CreateInput struct {
	LeadID       int64
	Type         string
	Title        string
	Message      string
	ScheduledFor time.Time
}

// Create inserts an ad hoc notification after checking the lead belongs to
// the caller.
func (s *Service) Create(ctx context.Context, userID int64, input CreateInput) (repository.Notification, error) {
	if _, ok := validTypes[input.Type]; !ok {
		return repository.Notification{}, apperr.Validation("invalid notification type")
	}
	if input.Title == "" {
		return repository.Notification{}, apperr.Validation("title is required")
	}
	if input.ScheduledFor.IsZero() {
		return repository.Notification{}, apperr.Validation("scheduledFor is required")
	}

	if _, err := s.leads.GetByID(ctx, input.LeadID, userID); err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return repository.Notification{}, apperr.NotFound("lead not found").WithOp("notifications.create")
		}
		return repository.Notification{}, storageErr("notifications.create", err)
	}

	created, err := s.store.Create(ctx, repository.CreateParams{
		LeadID:       input.LeadID,
		UserID:       userID,
		Type:         input.Type,
		Title:        input.Title,
		Message:      input.Message,
		ScheduledFor: input.ScheduledFor,
	})
	if err != nil {
		return repository.Notification{}, storageErr("notifications.create", err)
	}
	return created, nil
}

// GetByLead lists a lead's notifications. The lead is resolved first so a
// foreign lead id surfaces NotFound instead of an empty list.
func (s *Service) GetByLead(ctx context.Context, leadID int64, userID int64) ([]repository.Notification, error) {
	if _, err := s.leads.GetByID(ctx, leadID, userID); err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return nil, apperr.NotFound("lead not found").WithOp("notifications.get_by_lead")
		}
		return nil, storageErr("notifications.get_by_lead", err)
	}

	items, err := s.store.ListByLead(ctx, leadID, userID)
	if err != nil {
		return nil, storageErr("notifications.get_by_lead", err)
	}
	return items, nil
}

// GetPending lists the caller's due, unsent notifications.
func (s *Service) GetPending(ctx context.Context, userID int64) ([]repository.Notification, error) {
	items, err := s.store.ListPendingForUser(ctx, userID, s.now())
	if err != nil {
		return nil, storageErr("notifications.get_pending", err)
	}
	return items, nil
}

// MarkAsRead marks the notification sent. Applying it to an already-sent
// notification yields NotFound because the sent guard matches no row; sent_at
// is never overwritten.
func (s *Service) MarkAsRead(ctx context.Context, id int64, userID int64) (repository.Notification, error) {
	updated, err := s.store.MarkSent(ctx, id, userID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Notification{}, apperr.NotFound("notification not found").WithOp("notifications.mark_read")
		}
		return repository.Notification{}, storageErr("notifications.mark_read", err)
	}
	return updated, nil
}

// ScheduleAppointmentReminder inserts a single reminder at 09:00 on the day
// before the appointment. Called from the AppointmentScheduled event; skipped
// when that instant has already passed or a reminder is already close by.
func (s *Service) ScheduleAppointmentReminder(ctx context.Context, leadID int64, userID int64, patientName string, appointmentDate time.Time) error {
	local := appointmentDate.In(s.now().Location())
	year, month, day := local.Date()
	reminderAt := time.Date(year, month, day-1, 9, 0, 0, 0, local.Location())
	if !reminderAt.After(s.now()) {
		return nil
	}

	exists, err := s.store.ReminderExistsNear(ctx, leadID, reminderAt, time.Minute)
	if err != nil {
		return storageErr("notifications.schedule_reminder", err)
	}
	if exists {
		return nil
	}

	_, err = s.store.Create(ctx, repository.CreateParams{
		LeadID:       leadID,
		UserID:       userID,
		Type:         repository.TypeAppointmentReminder,
		Title:        fmt.Sprintf("Lembrete de Consulta - %s", patientName),
		Message:      fmt.Sprintf("Consulta com %s amanhã às %s", patientName, local.Format("15:04")),
		ScheduledFor: reminderAt,
	})
	if err != nil {
		return storageErr("notifications.schedule_reminder", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return apperr.Wrap(apperr.KindInternal, "storage unavailable", err).WithOp(op)
}
