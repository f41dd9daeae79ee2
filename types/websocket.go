package types

import "time"

// StateMessage represents a WebSocket update for a wallpaper item or its download
type StateMessage struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`               // "state", "progress", "complete", "error"
	Previous   StateKind         `json:"previous,omitempty"` // state before the change
	State      StateKind         `json:"state"`              // current item state
	Asset      *DisplayableAsset `json:"asset,omitempty"`
	Selectable bool              `json:"selectable"`
	JobID      string            `json:"jobId,omitempty"`
	Progress   float64           `json:"progress"` // 0-100 percentage
	Message    string            `json:"message,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
