package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	leadsrepo "dentalcrm_backend/internal/leads/repository"
	notifrepo "dentalcrm_backend/internal/notification/repository"
	"dentalcrm_backend/platform/logger"
)

// Channel delivers a rendered notification to a patient-facing medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, content string) error
}

// NotificationQueue is the dispatcher's view of the notification store.
type NotificationQueue interface {
	ListDue(ctx context.Context, now time.Time) ([]notifrepo.Notification, error)
	MarkSent(ctx context.Context, id int64, userID int64, sentAt time.Time) (notifrepo.Notification, error)
}

// LeadReader resolves the lead a notification points at.
type LeadReader interface {
	GetByID(ctx context.Context, id int64, userID int64) (leadsrepo.Lead, error)
}

// Dispatcher delivers due, unsent notifications and flips them to sent. A
// delivery failure leaves the row unsent so the next sweep retries it.
type Dispatcher struct {
	queue   NotificationQueue
	leads   LeadReader
	channel Channel
	log     *logger.Logger
	now     func() time.Time
}

func NewDispatcher(queue NotificationQueue, leads LeadReader, channel Channel, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		leads:   leads,
		channel: channel,
		log:     log,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Run executes one dispatch sweep. A failed listing aborts the run; per-item
// failures are logged and the sweep continues.
func (d *Dispatcher) Run(ctx context.Context) (int, error) {
	due, err := d.queue.ListDue(ctx, d.now())
	if err != nil {
		d.log.DatabaseError("list due notifications", err)
		return 0, fmt.Errorf("listing due notifications: %w", err)
	}

	d.log.JobEvent("notification_dispatcher", "started", len(due))

	sent := 0
	for _, item := range due {
		delivered, err := d.dispatch(ctx, item)
		if err != nil {
			d.log.Error("notification dispatch failed",
				"error", err, "notificationId", item.ID, "leadId", item.LeadID)
			continue
		}
		if delivered {
			sent++
		}
	}

	d.log.JobEvent("notification_dispatcher", "completed", sent)
	return sent, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, item notifrepo.Notification) (bool, error) {
	lead, err := d.leads.GetByID(ctx, item.LeadID, item.UserID)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			d.log.Warn("skipping notification for missing lead",
				"notificationId", item.ID, "leadId", item.LeadID)
			return false, nil
		}
		return false, err
	}

	content := fmt.Sprintf("%s\n\nPaciente: %s\nTelefone: %s", item.Message, lead.PatientName, lead.Phone)
	if err := d.channel.Send(ctx, item.Title, content); err != nil {
		return false, fmt.Errorf("sending via %s: %w", d.channel.Name(), err)
	}

	if _, err := d.queue.MarkSent(ctx, item.ID, item.UserID, d.now()); err != nil {
		// Already-sent rows surface as ErrNotFound through the sent guard.
		// Another sweep won the race, so the delivery is not repeated.
		if errors.Is(err, notifrepo.ErrNotFound) {
			return false, nil
		}
		return true, err
	}

	return true, nil
}
