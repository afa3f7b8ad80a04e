package models

import (
	"fmt"
	"strings"
)

// Role distinguishes parties that issue alerts from parties that receive them.
type Role string

const (
	RoleRequester Role = "requester"
	RoleRecipient Role = "recipient"
)

// ParseRole accepts the canonical role names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleRequester:
		return RoleRequester, nil
	case RoleRecipient:
		return RoleRecipient, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Location is a latitude/longitude pair in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Party is one connected or directory-known participant.
type Party struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	Role          Role      `json:"role"`
	Category      string    `json:"category,omitempty"`
	Location      *Location `json:"location,omitempty"`
	ChannelHandle string    `json:"channel_handle,omitempty"`
	PushToken     string    `json:"-"`
	Online        bool      `json:"online"`
}

// IsRecipientOf reports whether the party is a recipient matching category.
func (p Party) IsRecipientOf(category string) bool {
	return p.Role == RoleRecipient && p.Category == category
}

// PartyUpdate carries the fields of a partial directory upsert. Nil fields are
// left untouched.
type PartyUpdate struct {
	Name        *string
	Role        *Role
	Category    *string
	Location    *Location
	PushToken   *string
	Online      *bool
	LastChannel *string
}

// Ptr returns a pointer to v; handy when building a PartyUpdate.
func Ptr[T any](v T) *T {
	return &v
}
