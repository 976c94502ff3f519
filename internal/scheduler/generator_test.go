package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	leadsrepo "dentalcrm_backend/internal/leads/repository"
	notifrepo "dentalcrm_backend/internal/notification/repository"
	"dentalcrm_backend/platform/config"
	"dentalcrm_backend/platform/logger"
)

type fakeLeadSource struct {
	leads   []leadsrepo.Lead
	err     error
	gotFrom time.Time
	gotTo   time.Time
	gotStat string
}

func (f *fakeLeadSource) ListScheduledBetween(_ context.Context, from, to time.Time, status string) ([]leadsrepo.Lead, error) {
	f.gotFrom, f.gotTo, f.gotStat = from, to, status
	return f.leads, f.err
}

type fakeReminderSink struct {
	created   []notifrepo.CreateParams
	failLead  int64
	createErr error
}

func (f *fakeReminderSink) ReminderExistsNear(_ context.Context, leadID int64, target time.Time, tolerance time.Duration) (bool, error) {
	for _, params := range f.created {
		if params.LeadID != leadID || params.Type != notifrepo.TypeAppointmentReminder {
			continue
		}
		diff := params.ScheduledFor.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReminderSink) Create(_ context.Context, params notifrepo.CreateParams) (notifrepo.Notification, error) {
	if f.createErr != nil && params.LeadID == f.failLead {
		return notifrepo.Notification{}, f.createErr
	}
	f.created = append(f.created, params)
	return notifrepo.Notification{ID: int64(len(f.created)), LeadID: params.LeadID}, nil
}

func testLead(id int64, appointmentAt time.Time) leadsrepo.Lead {
	return leadsrepo.Lead{
		ID:              id,
		UserID:          1,
		PatientName:     "Maria Souza",
		Phone:           "(11) 91234-5678",
		TreatmentType:   "Implante",
		TreatmentValue:  250000,
		Status:          "Agendado",
		AppointmentDate: &appointmentAt,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGeneratorCreatesOneReminderPerSlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 3, 11, 14, 30, 0, 0, time.Local)

	source := &fakeLeadSource{leads: []leadsrepo.Lead{testLead(1, appointment)}}
	sink := &fakeReminderSink{}

	gen := NewReminderGenerator(source, sink, nil, logger.New("test"))
	gen.SetClock(fixedClock(now))

	created, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	slots := config.DefaultReminderSlots()
	if created != len(slots) {
		t.Fatalf("created %d reminders, want %d", created, len(slots))
	}

	for i, params := range sink.created {
		want := time.Date(2026, 3, 10, slots[i].Hour, slots[i].Minute, 0, 0, time.Local)
		if !params.ScheduledFor.Equal(want) {
			t.Errorf("slot %d scheduledFor = %v, want %v", i, params.ScheduledFor, want)
		}
		if params.Type != notifrepo.TypeAppointmentReminder {
			t.Errorf("slot %d type = %q", i, params.Type)
		}
	}
}

func TestGeneratorTargetsTomorrowsScheduledLeads(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 0, 0, 0, time.Local)
	source := &fakeLeadSource{}
	gen := NewReminderGenerator(source, &fakeReminderSink{}, nil, logger.New("test"))
	gen.SetClock(fixedClock(now))

	if _, err := gen.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantFrom := time.Date(2026, 3, 11, 0, 0, 0, 0, time.Local)
	wantTo := time.Date(2026, 3, 12, 0, 0, 0, 0, time.Local)
	if !source.gotFrom.Equal(wantFrom) || !source.gotTo.Equal(wantTo) {
		t.Errorf("window = [%v, %v), want [%v, %v)", source.gotFrom, source.gotTo, wantFrom, wantTo)
	}
	if source.gotStat != "Agendado" {
		t.Errorf("status filter = %q, want Agendado", source.gotStat)
	}
}

func TestGeneratorRerunCreatesNoDuplicates(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 3, 11, 14, 30, 0, 0, time.Local)

	source := &fakeLeadSource{leads: []leadsrepo.Lead{testLead(1, appointment)}}
	sink := &fakeReminderSink{}

	gen := NewReminderGenerator(source, sink, nil, logger.New("test"))
	gen.SetClock(fixedClock(now))

	first, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run returned error: %v", err)
	}
	second, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}

	if first == 0 {
		t.Fatal("first run created nothing")
	}
	if second != 0 {
		t.Errorf("second run created %d reminders, want 0", second)
	}
}

func TestGeneratorRendersPortugueseContent(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 3, 11, 14, 30, 0, 0, time.Local)

	source := &fakeLeadSource{leads: []leadsrepo.Lead{testLead(1, appointment)}}
	sink := &fakeReminderSink{}

	gen := NewReminderGenerator(source, sink, nil, logger.New("test"))
	gen.SetClock(fixedClock(now))

	if _, err := gen.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(sink.created) == 0 {
		t.Fatal("no reminders created")
	}

	got := sink.created[0]
	if got.Title != "Lembrete: Consulta de Implante" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Message != "Consulta com Maria Souza amanhã às 14:30" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestGeneratorContinuesPastLeadFailures(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 3, 11, 14, 30, 0, 0, time.Local)

	source := &fakeLeadSource{leads: []leadsrepo.Lead{
		testLead(1, appointment),
		testLead(2, appointment),
	}}
	sink := &fakeReminderSink{failLead: 1, createErr: errors.New("insert blew up")}

	gen := NewReminderGenerator(source, sink, nil, logger.New("test"))
	gen.SetClock(fixedClock(now))

	created, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("per-lead failure must not abort the run, got %v", err)
	}

	slots := len(config.DefaultReminderSlots())
	if created != slots {
		t.Errorf("created %d reminders, want %d (only the healthy lead)", created, slots)
	}
	for _, params := range sink.created {
		if params.LeadID != 2 {
			t.Errorf("reminder created for failing lead %d", params.LeadID)
		}
	}
}

func TestGeneratorAbortsWhenListingFails(t *testing.T) {
	source := &fakeLeadSource{err: errors.New("connection refused")}
	gen := NewReminderGenerator(source, &fakeReminderSink{}, nil, logger.New("test"))

	if _, err := gen.Run(context.Background()); err == nil {
		t.Fatal("storage failure during listing must abort the run")
	}
}
