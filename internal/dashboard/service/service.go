// Package service assembles the dashboard stats payload. Pure read; the only
// failure mode is storage unavailability.
package service

import (
	"context"
	"time"

	"dentalcrm_backend/internal/dashboard/repository"
	"dentalcrm_backend/platform/apperr"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	upcomingLimit  = 5
)

// Store is the aggregate surface the service reads from.
type Store interface {
	Counts(ctx context.Context, userID int64) (repository.Counts, error)
	UpcomingAppointments(ctx context.Context, userID int64, from, to time.Time, limit int) ([]repository.UpcomingAppointment, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Stats is the dashboard summary for one user.
type Stats struct {
	TotalLeads           int                              `json:"totalLeads"`
	Scheduled            int                              `json:"scheduled"`
	Attended             int                              `json:"attended"`
	Closed               int                              `json:"closed"`
	NoInterest           int                              `json:"noInterest"`
	UpcomingAppointments []repository.UpcomingAppointment `json:"upcomingAppointments"`
}

// Stats recomputes all counters and the next-7-days appointment list for the
// user. Leads already marked attended are excluded from the upcoming list.
func (s *Service) Stats(ctx context.Context, userID int64) (Stats, error) {
	counts, err := s.store.Counts(ctx, userID)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.KindInternal, "storage unavailable", err).WithOp("dashboard.stats")
	}

	now := s.now()
	upcoming, err := s.store.UpcomingAppointments(ctx, userID, now, now.Add(upcomingWindow), upcomingLimit)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.KindInternal, "storage unavailable", err).WithOp("dashboard.stats")
	}
	if upcoming == nil {
		upcoming = []repository.UpcomingAppointment{}
	}

	return Stats{
		TotalLeads:           counts.TotalLeads,
		Scheduled:            counts.Scheduled,
		Attended:             counts.Attended,
		Closed:               counts.Closed,
		NoInterest:           counts.NoInterest,
		UpcomingAppointments: upcoming,
	}, nil
}
