// Package service implements the lead lifecycle rules: creation defaults,
// ownership-scoped mutations, and the coupling between the status column and
// the attended/treatment_closed flags.
package service

import (
	"context"
	"errors"
	"time"

	"dentalcrm_backend/internal/events"
	"dentalcrm_backend/internal/leads/repository"
	"dentalcrm_backend/internal/leads/transport"
	"dentalcrm_backend/platform/apperr"
)

const (
	// DefaultListLimit is applied when the caller does not pick a page size.
	DefaultListLimit = 100
	// MaxListLimit caps the page size a caller may request.
	MaxListLimit = 500
)

var validTreatmentTypes = map[transport.TreatmentType]struct{}{
	transport.TreatmentFlexivel:    {},
	transport.TreatmentPPR:         {},
	transport.TreatmentProteseT:    {},
	transport.TreatmentImplante:    {},
	transport.TreatmentLimpeza:     {},
	transport.TreatmentClareamento: {},
	transport.TreatmentRestauracao: {},
	transport.TreatmentOutro:       {},
}

var validStatuses = map[transport.LeadStatus]struct{}{
	transport.StatusAConfirmar:   {},
	transport.StatusAgendado:     {},
	transport.StatusCompareceu:   {},
	transport.StatusFechou:       {},
	transport.StatusSemInteresse: {},
}

// Store is the persistence surface the service needs. *repository.Repository
// satisfies it; tests substitute a fake.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id int64, userID int64) (repository.Lead, error)
	List(ctx context.Context, userID int64, filters repository.Filters, limit, offset int) ([]repository.Lead, error)
	Count(ctx context.Context, userID int64, filters repository.Filters) (int, error)
	Update(ctx context.Context, id int64, userID int64, params repository.UpdateLeadParams) (repository.Lead, error)
	UpdateStatus(ctx context.Context, id int64, userID int64, status string) (repository.Lead, error)
	SetAttended(ctx context.Context, id int64, userID int64, attended bool, forcedStatus *string) (repository.Lead, error)
	SetTreatmentClosed(ctx context.Context, id int64, userID int64, closed bool, forcedStatus *string) (repository.Lead, error)
	Delete(ctx context.Context, id int64, userID int64) error
	ListWithAppointmentsBetween(ctx context.Context, userID int64, from, to time.Time) ([]repository.Lead, error)
}

type Service struct {
	store Store
	bus   events.Bus
	now   func() time.Time
}

func New(store Store, bus events.Bus) *Service {
	return &Service{
		store: store,
		bus:   bus,
		now:   time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates the input and inserts the lead with the documented
// defaults: attended=false, treatmentClosed=false, status="A Confirmar".
// The treatment value is an integer amount in centavos; the caller converts
// from display values, the service never rounds currency.
func (s *Service) Create(ctx context.Context, userID int64, req transport.CreateLeadRequest) (repository.Lead, error) {
	if err := validateCreate(req); err != nil {
		return repository.Lead{}, err
	}

	status := transport.StatusAConfirmar
	if req.Status != nil {
		status = *req.Status
	}

	params := repository.CreateLeadParams{
		UserID:          userID,
		PatientName:     req.PatientName,
		Phone:           req.Phone,
		TreatmentType:   string(req.TreatmentType),
		TreatmentValue:  req.TreatmentValue,
		ContactDate:     req.ContactDate,
		AppointmentDate: req.AppointmentDate,
		Status:          string(status),
	}
	if req.Attended != nil {
		params.Attended = *req.Attended
	}
	if req.TreatmentClosed != nil {
		params.TreatmentClosed = *req.TreatmentClosed
	}
	params.Observations = req.Observations
	params.Origin = req.Origin

	lead, err := s.store.Create(ctx, params)
	if err != nil {
		return repository.Lead{}, storageErr("leads.create", err)
	}

	s.publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		UserID:      lead.UserID,
		PatientName: lead.PatientName,
		Status:      lead.Status,
	})
	s.publishAppointmentScheduled(ctx, lead)

	return lead, nil
}

// Get returns the lead scoped by (id, userID). A lead owned by another user
// yields the same NotFound as a nonexistent id.
func (s *Service) Get(ctx context.Context, id int64, userID int64) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Lead{}, notFoundOrStorage("leads.get", err)
	}
	return lead, nil
}

// ClampLimit normalizes a requested page size to the allowed range.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// List returns one page of leads plus the total count over the same filters.
func (s *Service) List(ctx context.Context, userID int64, filters repository.Filters, limit, offset int) ([]repository.Lead, int, error) {
	limit = ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	items, err := s.store.List(ctx, userID, filters, limit, offset)
	if err != nil {
		return nil, 0, storageErr("leads.list", err)
	}

	total, err := s.store.Count(ctx, userID, filters)
	if err != nil {
		return nil, 0, storageErr("leads.count", err)
	}

	return items, total, nil
}

// Update applies a partial merge. It deliberately does not derive status from
// the attended/treatmentClosed flags: a raw update may leave them divergent,
// matching the observed behavior the status endpoints rely on.
func (s *Service) Update(ctx context.Context, id int64, userID int64, req transport.UpdateLeadRequest) (repository.Lead, error) {
	if err := validateUpdate(req); err != nil {
		return repository.Lead{}, err
	}

	params := repository.UpdateLeadParams{
		PatientName:     req.PatientName,
		Phone:           req.Phone,
		TreatmentValue:  req.TreatmentValue,
		ContactDate:     req.ContactDate,
		AppointmentDate: req.AppointmentDate,
		Attended:        req.Attended,
		TreatmentClosed: req.TreatmentClosed,
		Observations:    req.Observations,
		Origin:          req.Origin,
	}
	if req.TreatmentType != nil {
		value := string(*req.TreatmentType)
		params.TreatmentType = &value
	}
	if req.Status != nil {
		value := string(*req.Status)
		params.Status = &value
	}

	lead, err := s.store.Update(ctx, id, userID, params)
	if err != nil {
		return repository.Lead{}, notFoundOrStorage("leads.update", err)
	}

	if req.AppointmentDate != nil {
		s.publishAppointmentScheduled(ctx, lead)
	}

	return lead, nil
}

// Delete hard-deletes the lead. Irreversible.
func (s *Service) Delete(ctx context.Context, id int64, userID int64) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return notFoundOrStorage("leads.delete", err)
	}

	s.publish(ctx, events.LeadDeleted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		UserID:    userID,
	})

	return nil
}

// UpdateStatus sets the status directly. Any enumerated value is accepted
// regardless of the current state; no transition graph is enforced and the
// attended/treatmentClosed flags are untouched.
func (s *Service) UpdateStatus(ctx context.Context, id int64, userID int64, status transport.LeadStatus) (repository.Lead, error) {
	if _, ok := validStatuses[status]; !ok {
		return repository.Lead{}, apperr.Validation("invalid status")
	}

	lead, err := s.store.UpdateStatus(ctx, id, userID, string(status))
	if err != nil {
		return repository.Lead{}, notFoundOrStorage("leads.update_status", err)
	}

	s.publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		UserID:    lead.UserID,
		NewStatus: lead.Status,
	})

	return lead, nil
}

// MarkAttended sets the attended flag. Marking attended forces the status to
// Compareceu; unmarking leaves whatever status the lead reached.
func (s *Service) MarkAttended(ctx context.Context, id int64, userID int64, attended bool) (repository.Lead, error) {
	var forced *string
	if attended {
		value := string(transport.StatusCompareceu)
		forced = &value
	}

	lead, err := s.store.SetAttended(ctx, id, userID, attended, forced)
	if err != nil {
		return repository.Lead{}, notFoundOrStorage("leads.mark_attended", err)
	}

	if forced != nil {
		s.publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			UserID:    lead.UserID,
			NewStatus: lead.Status,
		})
	}

	return lead, nil
}

// MarkTreatmentClosed sets the treatment_closed flag. Closing forces the
// status to Fechou regardless of the prior attended value; reopening leaves
// the status unchanged.
func (s *Service) MarkTreatmentClosed(ctx context.Context, id int64, userID int64, closed bool) (repository.Lead, error) {
	var forced *string
	if closed {
		value := string(transport.StatusFechou)
		forced = &value
	}

	lead, err := s.store.SetTreatmentClosed(ctx, id, userID, closed, forced)
	if err != nil {
		return repository.Lead{}, notFoundOrStorage("leads.mark_treatment_closed", err)
	}

	if forced != nil {
		s.publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			UserID:    lead.UserID,
			NewStatus: lead.Status,
		})
	}

	return lead, nil
}

// TomorrowAppointments returns the caller's leads with an appointment falling
// inside tomorrow's calendar day in the process-local timezone.
func (s *Service) TomorrowAppointments(ctx context.Context, userID int64) ([]repository.Lead, error) {
	from, to := TomorrowWindow(s.now())

	items, err := s.store.ListWithAppointmentsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, storageErr("leads.tomorrow_appointments", err)
	}
	return items, nil
}

// TomorrowWindow computes the [midnight tomorrow, midnight day after) window
// for a given instant, in that instant's location.
func TomorrowWindow(now time.Time) (time.Time, time.Time) {
	year, month, day := now.Date()
	from := time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 0, 1)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func (s *Service) publishAppointmentScheduled(ctx context.Context, lead repository.Lead) {
	if s.bus == nil || lead.AppointmentDate == nil {
		return
	}
	if !lead.AppointmentDate.After(s.now()) {
		return
	}

	s.bus.Publish(ctx, events.AppointmentScheduled{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          lead.ID,
		UserID:          lead.UserID,
		PatientName:     lead.PatientName,
		AppointmentDate: *lead.AppointmentDate,
	})
}

func validateCreate(req transport.CreateLeadRequest) error {
	if req.PatientName == "" {
		return apperr.Validation("patientName is required")
	}
	if req.Phone == "" {
		return apperr.Validation("phone is required")
	}
	if _, ok := validTreatmentTypes[req.TreatmentType]; !ok {
		return apperr.Validation("invalid treatmentType")
	}
	if req.TreatmentValue <= 0 {
		return apperr.Validation("treatmentValue must be a positive integer amount in cents")
	}
	if req.ContactDate.IsZero() {
		return apperr.Validation("contactDate is required")
	}
	if req.Status != nil {
		if _, ok := validStatuses[*req.Status]; !ok {
			return apperr.Validation("invalid status")
		}
	}
	return nil
}

func validateUpdate(req transport.UpdateLeadRequest) error {
	if req.PatientName != nil && *req.PatientName == "" {
		return apperr.Validation("patientName cannot be empty")
	}
	if req.Phone != nil && *req.Phone == "" {
		return apperr.Validation("phone cannot be empty")
	}
	if req.TreatmentType != nil {
		if _, ok := validTreatmentTypes[*req.TreatmentType]; !ok {
			return apperr.Validation("invalid treatmentType")
		}
	}
	if req.TreatmentValue != nil && *req.TreatmentValue <= 0 {
		return apperr.Validation("treatmentValue must be a positive integer amount in cents")
	}
	if req.Status != nil {
		if _, ok := validStatuses[*req.Status]; !ok {
			return apperr.Validation("invalid status")
		}
	}
	return nil
}

func notFoundOrStorage(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found").WithOp(op)
	}
	return storageErr(op, err)
}

func storageErr(op string, err error) error {
	return apperr.Wrap(apperr.KindInternal, "storage unavailable", err).WithOp(op)
}
