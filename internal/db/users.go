package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"alert-service/internal/models"
)

// GetUser loads the profile fields the alert pipeline needs.
func (d *DB) GetUser(ctx context.Context, id string) (models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, fmt.Errorf("user %q: %w", id, models.ErrNotFound)
	}

	query := `
	SELECT id::text, name, email, phone, push_token, emergency_contacts, preferences
	FROM users
	WHERE id = $1`

	var u models.User
	err := d.Pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.PushToken,
		&u.EmergencyContacts,
		&u.Preferences,
	)
	if err != nil {
		return models.User{}, wrapErr("get user", err)
	}
	return u, nil
}

// UpdatePushToken replaces the user's device token. An empty token
// unregisters the device.
func (d *DB) UpdatePushToken(ctx context.Context, id, token string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("user %q: %w", id, models.ErrNotFound)
	}
	tag, err := d.Pool.Exec(ctx, `UPDATE users SET push_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
	if err != nil {
		return wrapErr("update push token", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil
}
