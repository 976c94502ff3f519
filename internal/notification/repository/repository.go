// Package repository persists scheduled notifications. A notification is
// written once, read by lead or by pending scan, and mutated only by the
// one-way sent transition.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("notification not found")

// Notification types. The scheduler only creates reminders; follow_up and
// custom come in through the API.
const (
	TypeAppointmentReminder = "appointment_reminder"
	TypeFollowUp            = "follow_up"
	TypeCustom              = "custom"
)

type Notification struct {
	ID           int64
	LeadID       int64
	UserID       int64
	Type         string
	Title        string
	Message      string
	ScheduledFor time.Time
	Sent         bool
	SentAt       *time.Time
	CreatedAt    time.Time
}

const notificationColumns = `id, lead_id, user_id, type, title, message, scheduled_for, sent, sent_at, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateParams struct {
	LeadID       int64
	UserID       int64
	Type         string
	Title        string
	Message      string
	ScheduledFor time.Time
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Notification, error) {
	query := `
		INSERT INTO notifications (lead_id, user_id, type, title, message, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + notificationColumns

	row := r.pool.QueryRow(ctx, query,
		params.LeadID, params.UserID, params.Type, params.Title, params.Message, params.ScheduledFor,
	)
	return scanNotification(row)
}

// ListByLead returns a lead's notifications, newest schedule first, scoped to
// the owning user.
func (r *Repository) ListByLead(ctx context.Context, leadID int64, userID int64) ([]Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE lead_id = $1 AND user_id = $2
		ORDER BY scheduled_for DESC`

	rows, err := r.pool.Query(ctx, query, leadID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// ListPendingForUser returns the caller's due, unsent notifications.
func (r *Repository) ListPendingForUser(ctx context.Context, userID int64, now time.Time) ([]Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND sent = FALSE AND scheduled_for <= $2
		ORDER BY scheduled_for ASC`

	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// ListDue returns every due, unsent notification across all users. This is
// the dispatcher's work queue, so it is deliberately not user-scoped.
func (r *Repository) ListDue(ctx context.Context, now time.Time) ([]Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE sent = FALSE AND scheduled_for <= $1
		ORDER BY scheduled_for ASC`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// MarkSent flips the one-way sent transition. The sent = FALSE guard makes a
// second call a no-op rather than an update of sent_at.
func (r *Repository) MarkSent(ctx context.Context, id int64, userID int64, sentAt time.Time) (Notification, error) {
	query := `
		UPDATE notifications
		SET sent = TRUE, sent_at = $3
		WHERE id = $1 AND user_id = $2 AND sent = FALSE
		RETURNING ` + notificationColumns

	row := r.pool.QueryRow(ctx, query, id, userID, sentAt)
	return scanNotification(row)
}

// ReminderExistsNear reports whether an appointment reminder already exists
// for the lead with scheduled_for within the given tolerance of target. The
// scheduler uses it as its idempotency probe.
func (r *Repository) ReminderExistsNear(ctx context.Context, leadID int64, target time.Time, tolerance time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM notifications
			WHERE lead_id = $1
			  AND type = $2
			  AND scheduled_for >= $3
			  AND scheduled_for <= $4
		)`

	var exists bool
	err := r.pool.QueryRow(ctx, query,
		leadID, TypeAppointmentReminder, target.Add(-tolerance), target.Add(tolerance),
	).Scan(&exists)
	return exists, err
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID, &n.LeadID, &n.UserID, &n.Type, &n.Title, &n.Message,
		&n.ScheduledFor, &n.Sent, &n.SentAt, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}

func collectNotifications(rows pgx.Rows) ([]Notification, error) {
	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.ID, &n.LeadID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.ScheduledFor, &n.Sent, &n.SentAt, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
