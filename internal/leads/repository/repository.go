package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

const leadColumns = `id, user_id, patient_name, phone, treatment_type, treatment_value,
	contact_date, appointment_date, attended, treatment_closed, status,
	observations, origin, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID              int64
	UserID          int64
	PatientName     string
	Phone           string
	TreatmentType   string
	TreatmentValue  int64
	ContactDate     time.Time
	AppointmentDate *time.Time
	Attended        bool
	TreatmentClosed bool
	Status          string
	Observations    *string
	Origin          *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateLeadParams struct {
	UserID          int64
	PatientName     string
	Phone           string
	TreatmentType   string
	TreatmentValue  int64
	ContactDate     time.Time
	AppointmentDate *time.Time
	Attended        bool
	TreatmentClosed bool
	Status          string
	Observations    *string
	Origin          *string
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			user_id, patient_name, phone, treatment_type, treatment_value,
			contact_date, appointment_date, attended, treatment_closed, status,
			observations, origin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+leadColumns+`
	`,
		params.UserID, params.PatientName, params.Phone, params.TreatmentType, params.TreatmentValue,
		params.ContactDate, params.AppointmentDate, params.Attended, params.TreatmentClosed, params.Status,
		params.Observations, params.Origin,
	).Scan(scanTargets(&lead)...)
	if err != nil {
		return Lead{}, err
	}

	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64, userID int64) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(scanTargets(&lead)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// Filters are ANDed together. Search matches patient name OR phone by
// case-sensitive substring containment.
type Filters struct {
	Search              string
	Status              string
	TreatmentType       string
	ContactDateFrom     *time.Time
	ContactDateTo       *time.Time
	AppointmentDateFrom *time.Time
	AppointmentDateTo   *time.Time
	Attended            *bool
	TreatmentClosed     *bool
}

func buildFilterClauses(userID int64, filters Filters) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}

	next := func() int { return len(args) + 1 }

	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		clauses = append(clauses, fmt.Sprintf("(patient_name LIKE $%d OR phone LIKE $%d)", next(), next()))
		args = append(args, pattern)
	}
	if filters.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", next()))
		args = append(args, filters.Status)
	}
	if filters.TreatmentType != "" {
		clauses = append(clauses, fmt.Sprintf("treatment_type = $%d", next()))
		args = append(args, filters.TreatmentType)
	}
	if filters.ContactDateFrom != nil {
		clauses = append(clauses, fmt.Sprintf("contact_date >= $%d", next()))
		args = append(args, *filters.ContactDateFrom)
	}
	if filters.ContactDateTo != nil {
		clauses = append(clauses, fmt.Sprintf("contact_date <= $%d", next()))
		args = append(args, *filters.ContactDateTo)
	}
	if filters.AppointmentDateFrom != nil {
		clauses = append(clauses, fmt.Sprintf("appointment_date >= $%d", next()))
		args = append(args, *filters.AppointmentDateFrom)
	}
	if filters.AppointmentDateTo != nil {
		clauses = append(clauses, fmt.Sprintf("appointment_date <= $%d", next()))
		args = append(args, *filters.AppointmentDateTo)
	}
	if filters.Attended != nil {
		clauses = append(clauses, fmt.Sprintf("attended = $%d", next()))
		args = append(args, *filters.Attended)
	}
	if filters.TreatmentClosed != nil {
		clauses = append(clauses, fmt.Sprintf("treatment_closed = $%d", next()))
		args = append(args, *filters.TreatmentClosed)
	}

	return strings.Join(clauses, " AND "), args
}

func (r *Repository) List(ctx context.Context, userID int64, filters Filters, limit, offset int) ([]Lead, error) {
	where, args := buildFilterClauses(userID, filters)

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, leadColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(scanTargets(&lead)...); err != nil {
			return nil, err
		}
		items = append(items, lead)
	}

	return items, rows.Err()
}

// Count returns the total number of leads matching the same filter set List uses.
func (r *Repository) Count(ctx context.Context, userID int64, filters Filters) (int, error) {
	where, args := buildFilterClauses(userID, filters)

	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE "+where, args...).Scan(&total)
	return total, err
}

type UpdateLeadParams struct {
	PatientName     *string
	Phone           *string
	TreatmentType   *string
	TreatmentValue  *int64
	ContactDate     *time.Time
	AppointmentDate *time.Time
	Attended        *bool
	TreatmentClosed *bool
	Status          *string
	Observations    *string
	Origin          *string
}

// Update applies a partial merge in a single ownership-scoped statement.
// COALESCE keeps unset columns untouched; updated_at always refreshes.
// No RETURNING row maps to ErrNotFound, which covers both a missing lead
// and one owned by another user.
func (r *Repository) Update(ctx context.Context, id int64, userID int64, params UpdateLeadParams) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			patient_name = COALESCE($3, patient_name),
			phone = COALESCE($4, phone),
			treatment_type = COALESCE($5, treatment_type),
			treatment_value = COALESCE($6, treatment_value),
			contact_date = COALESCE($7, contact_date),
			appointment_date = COALESCE($8, appointment_date),
			attended = COALESCE($9, attended),
			treatment_closed = COALESCE($10, treatment_closed),
			status = COALESCE($11, status),
			observations = COALESCE($12, observations),
			origin = COALESCE($13, origin),
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+leadColumns+`
	`,
		id, userID,
		params.PatientName, params.Phone, params.TreatmentType, params.TreatmentValue,
		params.ContactDate, params.AppointmentDate, params.Attended, params.TreatmentClosed,
		params.Status, params.Observations, params.Origin,
	).Scan(scanTargets(&lead)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateStatus sets status only; attended and treatment_closed are untouched.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, userID int64, status string) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+leadColumns+`
	`, id, userID, status).Scan(scanTargets(&lead)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// SetAttended flips the attended flag. When attended is true the status is
// forced to Compareceu in the same statement; when false the status stays as
// it was, a more advanced status is never reverted.
func (r *Repository) SetAttended(ctx context.Context, id int64, userID int64, attended bool, forcedStatus *string) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			attended = $3,
			status = COALESCE($4, status),
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+leadColumns+`
	`, id, userID, attended, forcedStatus).Scan(scanTargets(&lead)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// SetTreatmentClosed flips the treatment_closed flag, forcing status to
// Fechou when closing. Same conditional shape as SetAttended.
func (r *Repository) SetTreatmentClosed(ctx context.Context, id int64, userID int64, closed bool, forcedStatus *string) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			treatment_closed = $3,
			status = COALESCE($4, status),
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+leadColumns+`
	`, id, userID, closed, forcedStatus).Scan(scanTargets(&lead)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// Delete removes the lead. Hard delete, ownership-scoped in the predicate so
// a foreign lead reads as absent.
func (r *Repository) Delete(ctx context.Context, id int64, userID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM leads WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWithAppointmentsBetween returns a user's leads with an appointment date
// inside [from, to).
func (r *Repository) ListWithAppointmentsBetween(ctx context.Context, userID int64, from, to time.Time) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE user_id = $1 AND appointment_date >= $2 AND appointment_date < $3
		ORDER BY appointment_date ASC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(scanTargets(&lead)...); err != nil {
			return nil, err
		}
		items = append(items, lead)
	}

	return items, rows.Err()
}

// ListScheduledBetween returns leads of every user whose appointment date is
// inside [from, to) and whose status is the given one. Used by the reminder
// generator, which runs across the whole tenant base.
func (r *Repository) ListScheduledBetween(ctx context.Context, from, to time.Time, status string) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE appointment_date >= $1 AND appointment_date < $2 AND status = $3
		ORDER BY appointment_date ASC
	`, from, to, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(scanTargets(&lead)...); err != nil {
			return nil, err
		}
		items = append(items, lead)
	}

	return items, rows.Err()
}

func scanTargets(lead *Lead) []any {
	return []any{
		&lead.ID, &lead.UserID, &lead.PatientName, &lead.Phone, &lead.TreatmentType, &lead.TreatmentValue,
		&lead.ContactDate, &lead.AppointmentDate, &lead.Attended, &lead.TreatmentClosed, &lead.Status,
		&lead.Observations, &lead.Origin, &lead.CreatedAt, &lead.UpdatedAt,
	}
}
