// Package events defines the WebSocket message contract shared between the
// server and the dashboard frontend.
package events

import "time"

// Message types. The frontend switches on these to decide how to react;
// master:updated triggers a refetch of the rollup table.
const (
	TypeConnection    = "connection"
	TypeProgress      = "progress"
	TypeStatus        = "status"
	TypeError         = "error"
	TypeMasterUpdated = "master:updated"
)

// Message levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Envelope is the outer frame of every message the server pushes.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewEnvelope stamps a payload with its type and the current time.
func NewEnvelope(msgType string, data interface{}) Envelope {
	return Envelope{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// ConnectionData confirms a successful connection to the newly registered
// client.
type ConnectionData struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// ProgressData reports pipeline progress for an upload being processed.
type ProgressData struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// StatusData carries a coarse service state change.
type StatusData struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorData describes a processing failure pushed to open dashboards.
type ErrorData struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Stage       string `json:"stage"`
	Recoverable bool   `json:"recoverable"`
}

// MasterUpdatedData announces that a merge changed the persisted master
// table.
type MasterUpdatedData struct {
	ActiveWeeks  int   `json:"active_weeks"`
	TotalVolume  int   `json:"total_volume"`
	AdoptedWeeks []int `json:"adopted_weeks"`
}
