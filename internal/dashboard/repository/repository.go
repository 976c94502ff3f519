// Package repository computes dashboard aggregates directly in SQL. Every
// call recomputes from the leads table; nothing is cached or maintained
// incrementally.
package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Counts holds the per-user lead counters. Attended and Closed count by the
// boolean flags, not by status, so a lead whose flags drifted from its status
// is still counted by what its flags say.
type Counts struct {
	TotalLeads int
	Scheduled  int
	Attended   int
	Closed     int
	NoInterest int
}

const countsQuery = `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status IN ('Agendado', 'A Confirmar')),
		COUNT(*) FILTER (WHERE attended = TRUE),
		COUNT(*) FILTER (WHERE treatment_closed = TRUE),
		COUNT(*) FILTER (WHERE status = 'Sem Interesse')
	FROM leads
	WHERE user_id = $1`

func (r *Repository) Counts(ctx context.Context, userID int64) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, countsQuery, userID).Scan(
		&c.TotalLeads, &c.Scheduled, &c.Attended, &c.Closed, &c.NoInterest,
	)
	if err != nil {
		return Counts{}, err
	}
	return c, nil
}

// UpcomingAppointment is the projection shown on the dashboard card.
type UpcomingAppointment struct {
	LeadID          int64     `json:"leadId"`
	PatientName     string    `json:"patientName"`
	Phone           string    `json:"phone"`
	TreatmentType   string    `json:"treatmentType"`
	AppointmentDate time.Time `json:"appointmentDate"`
	Status          string    `json:"status"`
}

const upcomingQuery = `
	SELECT id, patient_name, phone, treatment_type, appointment_date, status
	FROM leads
	WHERE user_id = $1
	  AND appointment_date IS NOT NULL
	  AND appointment_date >= $2
	  AND appointment_date <= $3
	  AND attended = FALSE
	ORDER BY appointment_date ASC
	LIMIT $4`

func (r *Repository) UpcomingAppointments(ctx context.Context, userID int64, from, to time.Time, limit int) ([]UpcomingAppointment, error) {
	rows, err := r.pool.Query(ctx, upcomingQuery, userID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []UpcomingAppointment
	for rows.Next() {
		var item UpcomingAppointment
		if err := rows.Scan(
			&item.LeadID, &item.PatientName, &item.Phone,
			&item.TreatmentType, &item.AppointmentDate, &item.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
