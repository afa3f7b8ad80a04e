package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dispatch-service/internal/directory"
	"dispatch-service/internal/models"
)

const partyColumns = `id, name, role, category, latitude, longitude, push_token, online, last_channel`

func scanParty(row pgx.Row) (models.Party, error) {
	var p models.Party
	var role string
	var lat, lon *float64
	if err := row.Scan(&p.ID, &p.Name, &role, &p.Category, &lat, &lon, &p.PushToken, &p.Online, &p.ChannelHandle); err != nil {
		return models.Party{}, err
	}
	p.Role = models.Role(role)
	if lat != nil && lon != nil {
		p.Location = &models.Location{Latitude: *lat, Longitude: *lon}
	}
	return p, nil
}

// GetParty fetches one party record.
func (d *DB) GetParty(ctx context.Context, id string) (models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE id = $1`
	p, err := scanParty(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Party{}, directory.ErrNotFound
		}
		return models.Party{}, fmt.Errorf("failed to get party %s: %w", id, err)
	}
	return p, nil
}

// QueryRecipientsByCategory lists every recipient stored with category.
func (d *DB) QueryRecipientsByCategory(ctx context.Context, category string) ([]models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE role = $1 AND category = $2 ORDER BY id`
	rows, err := d.Pool.Query(ctx, query, string(models.RoleRecipient), category)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients for category %s: %w", category, err)
	}
	defer rows.Close()

	var list []models.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipients: %w", err)
	}
	return list, nil
}

// UpsertParty creates the record if needed and overwrites only the provided
// fields.
func (d *DB) UpsertParty(ctx context.Context, id string, f models.PartyUpdate) error {
	var role *string
	if f.Role != nil {
		r := string(*f.Role)
		role = &r
	}
	var lat, lon *float64
	if f.Location != nil {
		lat, lon = &f.Location.Latitude, &f.Location.Longitude
	}

	query := `
	INSERT INTO parties (id, role, category, latitude, longitude, push_token, online, last_channel, name, updated_at)
	VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), $4, $5, COALESCE($6, ''), COALESCE($7, FALSE), COALESCE($8, ''), COALESCE($9, ''), NOW())
	ON CONFLICT (id) DO UPDATE SET
		role         = COALESCE($2, parties.role),
		category     = COALESCE($3, parties.category),
		latitude     = COALESCE($4, parties.latitude),
		longitude    = COALESCE($5, parties.longitude),
		push_token   = COALESCE($6, parties.push_token),
		online       = COALESCE($7, parties.online),
		last_channel = COALESCE($8, parties.last_channel),
		name         = COALESCE($9, parties.name),
		updated_at   = NOW()`

	_, err := d.Pool.Exec(ctx, query, id, role, f.Category, lat, lon, f.PushToken, f.Online, f.LastChannel, f.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert party %s: %w", id, err)
	}
	return nil
}
