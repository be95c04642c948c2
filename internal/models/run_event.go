package models

import "time"

// Run event types stored in the append-only run log.
const (
	EventStart      = "START"
	EventCompleted  = "COMPLETED"
	EventCancelled  = "CANCELLED"
	EventFailed     = "FAILED"
	EventClassified = "CLASSIFIED"
	EventExported   = "EXPORTED"
)

// RunEvent is a single run log entry.
type RunEvent struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | COMPLETED | CANCELLED | FAILED | CLASSIFIED | EXPORTED
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
