package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alert-service/internal/models"
)

// RecordDeliveries appends channel attempts to the delivery log in one batch.
func (d *DB) RecordDeliveries(ctx context.Context, deliveries []models.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	query := `
	INSERT INTO alert_deliveries (
		id, alert_id, contact_index, contact_name, channel, status, reason, error, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	batch := &pgx.Batch{}
	for _, dl := range deliveries {
		id := dl.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(query, id, dl.AlertID, dl.ContactIndex, dl.ContactName, dl.Channel, dl.Status, dl.Reason, dl.Error, dl.CreatedAt)
	}

	br := d.Pool.SendBatch(ctx, batch)
	for range deliveries {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return wrapErr("insert delivery", err)
		}
	}
	if err := br.Close(); err != nil {
		return wrapErr("close delivery batch", err)
	}
	return nil
}

// ListDeliveries returns the delivery log of one alert, oldest first.
func (d *DB) ListDeliveries(ctx context.Context, alertID string) ([]models.Delivery, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT id::text, alert_id::text, contact_index, contact_name, channel, status, reason, error, created_at
	FROM alert_deliveries
	WHERE alert_id = $1
	ORDER BY created_at, contact_index`, alertID)
	if err != nil {
		return nil, wrapErr("list deliveries", err)
	}
	defer rows.Close()

	list := []models.Delivery{}
	for rows.Next() {
		var dl models.Delivery
		if err := rows.Scan(&dl.ID, &dl.AlertID, &dl.ContactIndex, &dl.ContactName, &dl.Channel,
			&dl.Status, &dl.Reason, &dl.Error, &dl.CreatedAt); err != nil {
			return nil, wrapErr("scan delivery", err)
		}
		list = append(list, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list deliveries", err)
	}
	return list, nil
}
