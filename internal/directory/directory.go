// Package directory defines the contract of the persistent party directory
// together with an in-memory implementation and a read-through cache.
package directory

import (
	"context"
	"errors"

	"dispatch-service/internal/models"
)

// ErrNotFound is returned by GetParty when the id is unknown.
var ErrNotFound = errors.New("party not found")

// Directory stores party records and the append-only alert history.
type Directory interface {
	GetParty(ctx context.Context, id string) (models.Party, error)
	// QueryRecipientsByCategory returns recipients only. Results may lag
	// behind in-memory state by the store's replication delay.
	QueryRecipientsByCategory(ctx context.Context, category string) ([]models.Party, error)
	UpsertParty(ctx context.Context, id string, fields models.PartyUpdate) error
	AppendAlert(ctx context.Context, alert models.Alert) error
	AppendResponse(ctx context.Context, resp models.AlertResponse) error
}

// Apply merges the non-nil fields of u into p.
func Apply(p *models.Party, u models.PartyUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Location != nil {
		loc := *u.Location
		p.Location = &loc
	}
	if u.PushToken != nil {
		p.PushToken = *u.PushToken
	}
	if u.Online != nil {
		p.Online = *u.Online
	}
	if u.LastChannel != nil {
		p.ChannelHandle = *u.LastChannel
	}
}
