package models

import "time"

const AlertStatusActive = "active"

// Alert is one broadcast solicitation. It is immutable once dispatched.
type Alert struct {
	ID          string    `json:"alert_id"`
	RequesterID string    `json:"requester_id"`
	Category    string    `json:"category"`
	Location    Location  `json:"location"`
	RadiusKm    float64   `json:"radius_km"`
	ZoneLabel   string    `json:"zone_label"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// AlertResponse is one recipient's reply to one alert.
type AlertResponse struct {
	AlertID     string    `json:"alert_id"`
	RecipientID string    `json:"recipient_id"`
	RequesterID string    `json:"requester_id"`
	Accepted    bool      `json:"accepted"`
	RespondedAt time.Time `json:"responded_at"`
}

// Channel names the path a notification took.
type Channel string

const (
	ChannelLive Channel = "live"
	ChannelPush Channel = "push"
	ChannelNone Channel = "none"
)

// Delivery is the outcome of notifying a single recipient.
type Delivery struct {
	RecipientID string  `json:"recipient_id"`
	Channel     Channel `json:"channel"`
	DistanceKm  float64 `json:"distance_km"`
	Delivered   bool    `json:"delivered"`
	Error       string  `json:"error,omitempty"`
}

// DispatchSummary aggregates the outcome of one alert dispatch.
type DispatchSummary struct {
	AlertID        string     `json:"alert_id"`
	LiveCount      int        `json:"live_count"`
	PushCount      int        `json:"push_count"`
	Total          int        `json:"total"`
	FailedCount    int        `json:"failed_count"`
	Persisted      bool       `json:"persisted"`
	DirectoryError string     `json:"directory_error,omitempty"`
	Deliveries     []Delivery `json:"deliveries,omitempty"`
}

// ResponseOutcome reports how a recipient's response reached (or failed to
// reach) the requester.
type ResponseOutcome struct {
	AlertID     string  `json:"alert_id"`
	RecipientID string  `json:"recipient_id"`
	RequesterID string  `json:"requester_id"`
	Channel     Channel `json:"channel"`
	Recorded    bool    `json:"recorded"`
	Err         error   `json:"-"`
}

// PushMessage is the provider-neutral payload handed to the push gateway.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}
