package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dentalcrm_backend/internal/events"
	"dentalcrm_backend/internal/leads/repository"
	"dentalcrm_backend/internal/leads/transport"
	"dentalcrm_backend/platform/apperr"
)

// fakeStore is an in-memory Store keyed by (id, userID) that mimics the
// ownership scoping of the SQL repository.
type fakeStore struct {
	leads   map[int64]repository.Lead
	nextID  int64
	failAll bool
}

var errStoreDown = errors.New("store down")

func newFakeStore() *fakeStore {
	return &fakeStore{leads: make(map[int64]repository.Lead), nextID: 1}
}

func (f *fakeStore) owned(id, userID int64) (repository.Lead, bool) {
	lead, ok := f.leads[id]
	if !ok || lead.UserID != userID {
		return repository.Lead{}, false
	}
	return lead, true
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	if f.failAll {
		return repository.Lead{}, errStoreDown
	}

	now := time.Now()
	lead := repository.Lead{
		ID:              f.nextID,
		UserID:          params.UserID,
		PatientName:     params.PatientName,
		Phone:           params.Phone,
		TreatmentType:   params.TreatmentType,
		TreatmentValue:  params.TreatmentValue,
		ContactDate:     params.ContactDate,
		AppointmentDate: params.AppointmentDate,
		Attended:        params.Attended,
		TreatmentClosed: params.TreatmentClosed,
		Status:          params.Status,
		Observations:    params.Observations,
		Origin:          params.Origin,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.nextID++
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64, userID int64) (repository.Lead, error) {
	if f.failAll {
		return repository.Lead{}, errStoreDown
	}
	lead, ok := f.owned(id, userID)
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) List(_ context.Context, userID int64, _ repository.Filters, limit, offset int) ([]repository.Lead, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	var items []repository.Lead
	for _, lead := range f.leads {
		if lead.UserID == userID {
			items = append(items, lead)
		}
	}
	if offset >= len(items) {
		return nil, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeStore) Count(_ context.Context, userID int64, _ repository.Filters) (int, error) {
	if f.failAll {
		return 0, errStoreDown
	}
	count := 0
	for _, lead := range f.leads {
		if lead.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, userID int64, params repository.UpdateLeadParams) (repository.Lead, error) {
	if f.failAll {
		return repository.Lead{}, errStoreDown
	}
	lead, ok := f.owned(id, userID)
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}

	if params.PatientName != nil {
		lead.PatientName = *params.PatientName
	}
	if params.Phone != nil {
		lead.Phone = *params.Phone
	}
	if params.TreatmentType != nil {
		lead.TreatmentType = *params.TreatmentType
	}
	if params.TreatmentValue != nil {
		lead.TreatmentValue = *params.TreatmentValue
	}
	if params.ContactDate != nil {
		lead.ContactDate = *params.ContactDate
	}
	if params.AppointmentDate != nil {
		lead.AppointmentDate = params.AppointmentDate
	}
	if params.Attended != nil {
		lead.Attended = *params.Attended
	}
	if params.TreatmentClosed != nil {
		lead.TreatmentClosed = *params.TreatmentClosed
	}
	if params.Status != nil {
		lead.Status = *params.Status
	}
	if params.Observations != nil {
		lead.Observations = params.Observations
	}
	if params.Origin != nil {
		lead.Origin = params.Origin
	}
	lead.UpdatedAt = time.Now()

	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, userID int64, status string) (repository.Lead, error) {
	if f.failAll {
		return repository.Lead{}, errStoreDown
	}
	lead, ok := f.owned(id, userID)
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Status = status
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) SetAttended(_ context.Context, id int64, userID int64, attended bool, forcedStatus *string) (repository.Lead, error) {
	if f.failAll {
		return repository.Lead{}, errStoreDown
	}
	lead, ok := f.owned(id, userID)
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Attended = attended
	if forcedStatus != nil {
		lead.Status = *forcedStatus
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) SetTreatmentClosed(_ context.Context, id int64, userID int64, closed bool, forcedStatus *string) (repository.Lead, error) {
	if f.failAll {
		return repository.Lead{}, errStoreDown
	}
	lead, ok := f.owned(id, userID)
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.TreatmentClosed = closed
	if forcedStatus != nil {
		lead.Status = *forcedStatus
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64, userID int64) error {
	if f.failAll {
		return errStoreDown
	}
	if _, ok := f.owned(id, userID); !ok {
		return repository.ErrNotFound
	}
	delete(f.leads, id)
	return nil
}

func (f *fakeStore) ListWithAppointmentsBetween(_ context.Context, userID int64, from, to time.Time) ([]repository.Lead, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	var items []repository.Lead
	for _, lead := range f.leads {
		if lead.UserID != userID || lead.AppointmentDate == nil {
			continue
		}
		at := *lead.AppointmentDate
		if !at.Before(from) && at.Before(to) {
			items = append(items, lead)
		}
	}
	return items, nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func validCreateRequest() transport.CreateLeadRequest {
	return transport.CreateLeadRequest{
		PatientName:    "João Silva",
		Phone:          "(11) 98765-4321",
		TreatmentType:  transport.TreatmentImplante,
		TreatmentValue: 150000,
		ContactDate:    time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local),
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 7, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if lead.Status != string(transport.StatusAConfirmar) {
		t.Errorf("default status = %q, want %q", lead.Status, transport.StatusAConfirmar)
	}
	if lead.Attended {
		t.Error("new lead should not be attended")
	}
	if lead.TreatmentClosed {
		t.Error("new lead should not have treatment closed")
	}
	if lead.UserID != 7 {
		t.Errorf("owner = %d, want 7", lead.UserID)
	}
}

func TestCreateKeepsIntegerTreatmentValue(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	req := validCreateRequest()
	req.TreatmentValue = 150000 // R$ 1.500,00 pre-converted to centavos

	lead, err := svc.Create(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if lead.TreatmentValue != 150000 {
		t.Errorf("treatmentValue = %d, want 150000", lead.TreatmentValue)
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*transport.CreateLeadRequest)
	}{
		{"missing patient name", func(r *transport.CreateLeadRequest) { r.PatientName = "" }},
		{"missing phone", func(r *transport.CreateLeadRequest) { r.Phone = "" }},
		{"unknown treatment type", func(r *transport.CreateLeadRequest) { r.TreatmentType = "Ortodontia" }},
		{"zero value", func(r *transport.CreateLeadRequest) { r.TreatmentValue = 0 }},
		{"negative value", func(r *transport.CreateLeadRequest) { r.TreatmentValue = -500 }},
		{"zero contact date", func(r *transport.CreateLeadRequest) { r.ContactDate = time.Time{} }},
		{"unknown status", func(r *transport.CreateLeadRequest) {
			bad := transport.LeadStatus("Pendente")
			r.Status = &bad
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := New(store, &recordingBus{})

			req := validCreateRequest()
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), 1, req)
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("error kind = %v, want validation (err=%v)", apperr.GetKind(err), err)
			}
			if len(store.leads) != 0 {
				t.Error("invalid lead must not be stored")
			}
		})
	}
}

func TestGetHidesForeignLeads(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 1, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, err = svc.Get(context.Background(), lead.ID, 2)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("cross-user get: error kind = %v, want not-found", apperr.GetKind(err))
	}

	_, err = svc.Get(context.Background(), 9999, 1)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("missing id get: error kind = %v, want not-found", apperr.GetKind(err))
	}
}

func TestMarkAttendedForcesStatus(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 1, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.MarkAttended(context.Background(), lead.ID, 1, true)
	if err != nil {
		t.Fatalf("MarkAttended returned error: %v", err)
	}
	if !updated.Attended {
		t.Error("attended flag not set")
	}
	if updated.Status != string(transport.StatusCompareceu) {
		t.Errorf("status = %q, want %q", updated.Status, transport.StatusCompareceu)
	}
}

func TestMarkAttendedFalseLeavesStatus(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 1, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), lead.ID, 1, transport.StatusFechou); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	updated, err := svc.MarkAttended(context.Background(), lead.ID, 1, false)
	if err != nil {
		t.Fatalf("MarkAttended returned error: %v", err)
	}
	if updated.Attended {
		t.Error("attended flag should be cleared")
	}
	if updated.Status != string(transport.StatusFechou) {
		t.Errorf("unmarking attended must not revert status, got %q", updated.Status)
	}
}

func TestMarkAttendedIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 1, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, err := svc.MarkAttended(context.Background(), lead.ID, 1, true)
	if err != nil {
		t.Fatalf("first MarkAttended returned error: %v", err)
	}
	second, err := svc.MarkAttended(context.Background(), lead.ID, 1, true)
	if err != nil {
		t.Fatalf("second MarkAttended returned error: %v", err)
	}
	if first.Attended != second.Attended || first.Status != second.Status {
		t.Errorf("repeat MarkAttended changed state: %+v vs %+v", first, second)
	}
}

func TestMarkTreatmentClosedForcesStatus(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 1, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Close directly from A Confirmar; no attendance required first.
	updated, err := svc.MarkTreatmentClosed(context.Background(), lead.ID, 1, true)
	if err != nil {
		t.Fatalf("MarkTreatmentClosed returned error: %v", err)
	}
	if !updated.TreatmentClosed {
		t.Error("treatmentClosed flag not set")
	}
	if updated.Status != string(transport.StatusFechou) {
		t.Errorf("status = %q, want %q", updated.Status, transport.StatusFechou)
	}

	reopened, err := svc.MarkTreatmentClosed(context.Background(), lead.ID, 1, false)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	if reopened.TreatmentClosed {
		t.Error("treatmentClosed flag should be cleared")
	}
	if reopened.Status != string(transport.StatusFechou) {
		t.Errorf("reopening must not revert status, got %q", reopened.Status)
	}
}

func TestUpdateStatusAllowsAnyEnumeratedTransition(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 1, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// No transition graph: straight from A Confirmar to Fechou is legal.
	updated, err := svc.UpdateStatus(context.Background(), lead.ID, 1, transport.StatusFechou)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if updated.Status != string(transport.StatusFechou) {
		t.Errorf("status = %q, want %q", updated.Status, transport.StatusFechou)
	}
	if updated.Attended || updated.TreatmentClosed {
		t.Error("updateStatus must not touch the boolean flags")
	}

	_, err = svc.UpdateStatus(context.Background(), lead.ID, 1, "Cancelado")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("unknown status: error kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestUpdateMayLeaveStatusAndFlagsDivergent(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 1, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	closed := true
	updated, err := svc.Update(context.Background(), lead.ID, 1, transport.UpdateLeadRequest{
		TreatmentClosed: &closed,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !updated.TreatmentClosed {
		t.Error("treatmentClosed not applied")
	}
	if updated.Status != string(transport.StatusAConfirmar) {
		t.Errorf("raw update must not derive status, got %q", updated.Status)
	}
}

func TestListClampsPagination(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), 1, validCreateRequest()); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	items, total, err := svc.List(context.Background(), 1, repository.Filters{}, -5, -10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 3 || total != 3 {
		t.Errorf("got %d items, total %d, want 3/3", len(items), total)
	}

	items, total, err = svc.List(context.Background(), 1, repository.Filters{}, 2, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("limited page returned %d items, want 2", len(items))
	}
	if total != 3 {
		t.Errorf("total = %d, want 3 (count covers all matches, not the page)", total)
	}
}

func TestDeleteIsScopedAndFinal(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	lead, err := svc.Create(context.Background(), 1, validCreateRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(context.Background(), lead.ID, 2); apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("cross-user delete: error kind = %v, want not-found", apperr.GetKind(err))
	}
	if err := svc.Delete(context.Background(), lead.ID, 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := svc.Delete(context.Background(), lead.ID, 1); apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("repeat delete: error kind = %v, want not-found", apperr.GetKind(err))
	}
}

func TestTomorrowWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.Local)
	from, to := TomorrowWindow(now)

	wantFrom := time.Date(2026, 3, 11, 0, 0, 0, 0, time.Local)
	wantTo := time.Date(2026, 3, 12, 0, 0, 0, 0, time.Local)
	if !from.Equal(wantFrom) || !to.Equal(wantTo) {
		t.Errorf("window = [%v, %v), want [%v, %v)", from, to, wantFrom, wantTo)
	}
}

func TestTomorrowAppointmentsFiltersWindow(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &recordingBus{})

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	svc.SetClock(func() time.Time { return now })

	mk := func(at time.Time) {
		req := validCreateRequest()
		req.AppointmentDate = &at
		if _, err := svc.Create(context.Background(), 1, req); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	mk(time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local)) // tomorrow
	mk(time.Date(2026, 3, 12, 10, 0, 0, 0, time.Local)) // day after
	mk(time.Date(2026, 3, 10, 18, 0, 0, 0, time.Local)) // today

	items, err := svc.TomorrowAppointments(context.Background(), 1)
	if err != nil {
		t.Fatalf("TomorrowAppointments returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d appointments, want 1", len(items))
	}
	if items[0].AppointmentDate.Day() != 11 {
		t.Errorf("wrong appointment selected: %v", items[0].AppointmentDate)
	}
}

func TestAppointmentSchedulingPublishesEvent(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := New(store, bus)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	svc.SetClock(func() time.Time { return now })

	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.Local)
	req := validCreateRequest()
	req.AppointmentDate = &at

	if _, err := svc.Create(context.Background(), 1, req); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	found := false
	for _, event := range bus.published {
		if scheduled, ok := event.(events.AppointmentScheduled); ok {
			found = true
			if !scheduled.AppointmentDate.Equal(at) {
				t.Errorf("event appointment = %v, want %v", scheduled.AppointmentDate, at)
			}
		}
	}
	if !found {
		t.Error("AppointmentScheduled event not published for future appointment")
	}
}

func TestStorageFailureMapsToInternal(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	svc := New(store, &recordingBus{})

	_, err := svc.Get(context.Background(), 1, 1)
	if apperr.GetKind(err) != apperr.KindInternal {
		t.Errorf("error kind = %v, want internal", apperr.GetKind(err))
	}
}
