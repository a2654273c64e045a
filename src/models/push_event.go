package models

import "encoding/json"

// Push topics as published by the backend.
const (
	TopicDataPoint     = "/topic/datapoints"
	TopicDataPoints    = "/topic/datapoints/batch"
	TopicSystemStatus  = "/topic/system/status"
	TopicNotifications = "/topic/notifications"
)

// MPushFrame is the envelope of every push message.
type MPushFrame struct {
	Topic string          `json:"topic"`
	Body  json.RawMessage `json:"body"`
}

// Notification levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// MNotification is a user-facing, non-blocking notice.
type MNotification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// MConnectionStatus describes the push channel state.
type MConnectionStatus struct {
	Connected bool   `json:"connected"`
	Text      string `json:"text"`
	Attempts  int    `json:"attempts"`
}

// -----------------------------------------------------------------------------
// Downstream hub messages
// -----------------------------------------------------------------------------

// Hub message types.
const (
	HubTypeInitial      = "INITIAL"
	HubTypeView         = "VIEW"
	HubTypeStatistics   = "STATISTICS"
	HubTypeNotification = "NOTIFICATION"
	HubTypeStatus       = "STATUS"
	HubTypeSystem       = "SYSTEM"
)

// MHubMessage is what downstream viewers receive over the hub websocket.
type MHubMessage struct {
	Type         string             `json:"type"`
	Views        []MSeries          `json:"views,omitempty"`
	View         *MSeries           `json:"view,omitempty"`
	Statistics   *MStatistics       `json:"statistics,omitempty"`
	Notification *MNotification     `json:"notification,omitempty"`
	Status       *MConnectionStatus `json:"status,omitempty"`
	System       json.RawMessage    `json:"system,omitempty"`
}

// MSubscribeCommand is sent by viewers to narrow the views they receive.
type MSubscribeCommand struct {
	Command string   `json:"command"`
	Views   []string `json:"views"`
}
