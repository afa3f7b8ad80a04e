package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"dispatch-service/internal/models"
)

// AppendAlert records a dispatched alert in the history.
func (d *DB) AppendAlert(ctx context.Context, alert models.Alert) error {
	id, err := uuid.Parse(alert.ID)
	if err != nil {
		return fmt.Errorf("invalid alert id %q: %w", alert.ID, err)
	}

	query := `
	INSERT INTO alerts (
		id, requester_id, category, latitude, longitude, radius_km, zone_label, status, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = d.Pool.Exec(ctx, query,
		id,
		alert.RequesterID,
		alert.Category,
		alert.Location.Latitude,
		alert.Location.Longitude,
		alert.RadiusKm,
		alert.ZoneLabel,
		alert.Status,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// AppendResponse records a recipient's answer to an alert.
func (d *DB) AppendResponse(ctx context.Context, resp models.AlertResponse) error {
	query := `
	INSERT INTO alert_responses (alert_id, recipient_id, requester_id, accepted, responded_at)
	VALUES ($1, $2, $3, $4, $5)`

	_, err := d.Pool.Exec(ctx, query,
		resp.AlertID,
		resp.RecipientID,
		resp.RequesterID,
		resp.Accepted,
		resp.RespondedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert response: %w", err)
	}
	return nil
}

// ResponsesForAlert lists the responses recorded for one alert, oldest first.
func (d *DB) ResponsesForAlert(ctx context.Context, alertID string) ([]models.AlertResponse, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT alert_id, recipient_id, requester_id, accepted, responded_at
	FROM alert_responses
	WHERE alert_id = $1
	ORDER BY responded_at, id`, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses for alert %s: %w", alertID, err)
	}
	defer rows.Close()

	var list []models.AlertResponse
	for rows.Next() {
		var r models.AlertResponse
		if err := rows.Scan(&r.AlertID, &r.RecipientID, &r.RequesterID, &r.Accepted, &r.RespondedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert response: %w", err)
		}
		list = append(list, r)
	}
	return list, rows.Err()
}
