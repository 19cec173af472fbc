package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alert-service/internal/models"
)

const alertColumns = `
	id::text, user_id::text, owner_name, status, longitude, latitude, address, message,
	emergency_contacts, created_at, updated_at, resolved_at, cancelled_at`

// CreateAlert inserts a new alert. The ID must already be set.
func (d *DB) CreateAlert(ctx context.Context, a models.Alert) error {
	query := `
	INSERT INTO alerts (
		id, user_id, owner_name, status, longitude, latitude, address, message,
		emergency_contacts, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := d.Pool.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.OwnerName,
		string(a.Status),
		a.Location.Longitude(),
		a.Location.Latitude(),
		a.Location.Address,
		a.Message,
		a.EmergencyContacts,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return wrapErr("insert alert", err)
	}
	return nil
}

// GetAlert returns the alert only if it belongs to userID.
func (d *DB) GetAlert(ctx context.Context, id, userID string) (models.Alert, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Alert{}, fmt.Errorf("alert %q: %w", id, models.ErrNotFound)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return models.Alert{}, fmt.Errorf("alert %q: %w", id, models.ErrNotFound)
	}

	query := `SELECT` + alertColumns + ` FROM alerts WHERE id = $1 AND user_id = $2`
	a, err := scanAlert(d.Pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return models.Alert{}, wrapErr("get alert", err)
	}
	return a, nil
}

// ListAlerts returns the user's alerts in the given statuses, newest first.
func (d *DB) ListAlerts(ctx context.Context, userID string, statuses []models.AlertStatus) ([]models.Alert, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []models.Alert{}, nil
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `SELECT` + alertColumns + `
	FROM alerts
	WHERE user_id = $1 AND status = ANY($2)
	ORDER BY created_at DESC`

	rows, err := d.Pool.Query(ctx, query, userID, names)
	if err != nil {
		return nil, wrapErr("list alerts", err)
	}
	defer rows.Close()

	list := []models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, wrapErr("scan alert", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list alerts", err)
	}
	return list, nil
}

// SaveTransition persists a status change made by Alert.ApplyTransition.
// The write only applies while the stored alert is still active, so a
// racing transition gets ErrInvalidState instead of overwriting.
func (d *DB) SaveTransition(ctx context.Context, a models.Alert) error {
	query := `
	UPDATE alerts
	SET status = $3, updated_at = $4, resolved_at = $5, cancelled_at = $6
	WHERE id = $1 AND user_id = $2 AND status = 'active'`

	tag, err := d.Pool.Exec(ctx, query, a.ID, a.UserID, string(a.Status), a.UpdatedAt, a.ResolvedAt, a.CancelledAt)
	if err != nil {
		return wrapErr("update alert status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s is no longer active: %w", a.ID, models.ErrInvalidState)
	}
	return nil
}

// MarkContactsNotified applies all marks in one transaction so concurrent
// writers cannot lose each other's updates.
func (d *DB) MarkContactsNotified(ctx context.Context, alertID string, marks []models.ContactMark) error {
	if len(marks) == 0 {
		return nil
	}
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return wrapErr("begin mark contacts", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var contacts []models.EmergencyContact
	err = tx.QueryRow(ctx, `SELECT emergency_contacts FROM alerts WHERE id = $1 FOR UPDATE`, alertID).Scan(&contacts)
	if err != nil {
		return wrapErr("lock alert contacts", err)
	}

	for _, m := range marks {
		if m.Index < 0 || m.Index >= len(contacts) {
			return fmt.Errorf("%w: contact index %d out of range for alert %s", models.ErrValidation, m.Index, alertID)
		}
		if !contacts[m.Index].Notified {
			contacts[m.Index].MarkNotified(m.At)
		}
	}

	_, err = tx.Exec(ctx, `UPDATE alerts SET emergency_contacts = $2, updated_at = $3 WHERE id = $1`,
		alertID, contacts, time.Now())
	if err != nil {
		return wrapErr("update alert contacts", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapErr("commit mark contacts", err)
	}
	return nil
}

func scanAlert(row pgx.Row) (models.Alert, error) {
	var a models.Alert
	var status string
	var lon, lat float64
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.OwnerName,
		&status,
		&lon,
		&lat,
		&a.Location.Address,
		&a.Message,
		&a.EmergencyContacts,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ResolvedAt,
		&a.CancelledAt,
	)
	if err != nil {
		return models.Alert{}, err
	}
	a.Status = models.AlertStatus(status)
	a.Location.Type = "Point"
	a.Location.Coordinates = []float64{lon, lat}
	if a.EmergencyContacts == nil {
		a.EmergencyContacts = []models.EmergencyContact{}
	}
	return a, nil
}
