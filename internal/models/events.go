package models

import "encoding/json"

// Inbound event names.
const (
	EventRegister       = "register"
	EventUpdateLocation = "updateLocation"
	EventSendAlert      = "sendAlert"
	EventRespondToAlert = "respondToAlert"
)

// Outbound event names.
const (
	EventRegistered    = "registered"
	EventNewAlert      = "newAlert"
	EventAlertSent     = "alertSent"
	EventAlertResponse = "alertResponse"
	EventError         = "error"
)

// Envelope is the wire frame exchanged over the live channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RegisterRequest is the payload of a register event.
type RegisterRequest struct {
	UserID    string   `json:"userId"`
	Name      string   `json:"name,omitempty"`
	Role      string   `json:"role"`
	Category  string   `json:"category,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	PushToken string   `json:"pushToken,omitempty"`
}

// UpdateLocationRequest is the payload of an updateLocation event.
type UpdateLocationRequest struct {
	UserID    string   `json:"userId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// SendAlertRequest is the payload of a sendAlert event (and of inbound Kafka
// messages).
type SendAlertRequest struct {
	RequesterID string   `json:"requesterId"`
	Zone        string   `json:"zone"`
	Category    string   `json:"category"`
	RadiusKm    *float64 `json:"radiusKm"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// RespondToAlertRequest is the payload of a respondToAlert event.
type RespondToAlertRequest struct {
	AlertID     string `json:"alertId"`
	RecipientID string `json:"recipientId"`
	RequesterID string `json:"requesterId"`
	Accepted    *bool  `json:"accepted"`
}

// Registered acknowledges a register event.
type Registered struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewAlert is delivered on a recipient's live channel.
type NewAlert struct {
	AlertID     string  `json:"alertId"`
	RequesterID string  `json:"requesterId"`
	Zone        string  `json:"zone"`
	Category    string  `json:"category"`
	DistanceKm  float64 `json:"distance"`
}

// AlertSent reports a dispatch summary to the requester.
type AlertSent struct {
	Success           bool   `json:"success"`
	AlertID           string `json:"alertId,omitempty"`
	NotificationsSent int    `json:"notificationsSent"`
	LiveCount         int    `json:"liveNotifications"`
	PushCount         int    `json:"pushNotifications"`
	FailedCount       int    `json:"failedNotifications"`
	Error             string `json:"error,omitempty"`
}

// AlertResponseNotice is delivered on a requester's live channel.
type AlertResponseNotice struct {
	AlertID     string `json:"alertId"`
	RecipientID string `json:"recipientId"`
	Accepted    bool   `json:"accepted"`
}

// ErrorNotice reports a rejected inbound event.
type ErrorNotice struct {
	Event string `json:"event"`
	Error string `json:"error"`
}
