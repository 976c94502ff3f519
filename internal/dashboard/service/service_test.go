package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dentalcrm_backend/internal/dashboard/repository"
	"dentalcrm_backend/platform/apperr"
)

type fakeStore struct {
	counts   repository.Counts
	upcoming []repository.UpcomingAppointment
	err      error
	gotFrom  time.Time
	gotTo    time.Time
	gotLimit int
}

func (f *fakeStore) Counts(_ context.Context, _ int64) (repository.Counts, error) {
	if f.err != nil {
		return repository.Counts{}, f.err
	}
	return f.counts, nil
}

func (f *fakeStore) UpcomingAppointments(_ context.Context, _ int64, from, to time.Time, limit int) ([]repository.UpcomingAppointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotFrom, f.gotTo, f.gotLimit = from, to, limit
	return f.upcoming, nil
}

func TestStatsAssemblesCounters(t *testing.T) {
	store := &fakeStore{
		counts: repository.Counts{
			TotalLeads: 12,
			Scheduled:  5,
			Attended:   4,
			Closed:     3,
			NoInterest: 2,
		},
		upcoming: []repository.UpcomingAppointment{
			{LeadID: 1, PatientName: "Maria Souza"},
		},
	}

	svc := New(store)
	stats, err := svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}

	if stats.TotalLeads != 12 || stats.Scheduled != 5 || stats.Attended != 4 ||
		stats.Closed != 3 || stats.NoInterest != 2 {
		t.Errorf("stats counters wrong: %+v", stats)
	}
	if len(stats.UpcomingAppointments) != 1 {
		t.Errorf("upcoming = %d entries, want 1", len(stats.UpcomingAppointments))
	}
}

func TestStatsUsesSevenDayWindowAndCap(t *testing.T) {
	store := &fakeStore{}
	svc := New(store)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	svc.SetClock(func() time.Time { return now })

	if _, err := svc.Stats(context.Background(), 1); err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}

	if !store.gotFrom.Equal(now) {
		t.Errorf("window start = %v, want %v", store.gotFrom, now)
	}
	if !store.gotTo.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Errorf("window end = %v, want now+7d", store.gotTo)
	}
	if store.gotLimit != 5 {
		t.Errorf("limit = %d, want 5", store.gotLimit)
	}
}

func TestStatsReturnsEmptySliceNotNil(t *testing.T) {
	svc := New(&fakeStore{})

	stats, err := svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.UpcomingAppointments == nil {
		t.Error("upcomingAppointments must serialize as [], not null")
	}
}

func TestStatsMapsStorageFailure(t *testing.T) {
	svc := New(&fakeStore{err: errors.New("connection refused")})

	_, err := svc.Stats(context.Background(), 1)
	if apperr.GetKind(err) != apperr.KindInternal {
		t.Errorf("error kind = %v, want internal", apperr.GetKind(err))
	}
}
