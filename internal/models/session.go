package models

import "time"

// Session states as persisted in the sessions table.
const (
	SessionRunning   = "RUNNING"
	SessionCompleted = "COMPLETED"
	SessionCancelled = "CANCELLED"
	SessionFailed    = "FAILED"
)

// Session is one acquisition run and what became of it.
type Session struct {
	ID          string     `json:"id"`
	Port        string     `json:"port"`
	BaudRate    int        `json:"baud_rate"`
	DurationSec int        `json:"duration_sec"`
	Content     string     `json:"content,omitempty"` // content type being watched, e.g. "Jornal"
	State       string     `json:"state"`             // RUNNING | COMPLETED | CANCELLED | FAILED
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	SampleCount int        `json:"sample_count"`
	Label       string     `json:"label,omitempty"` // aggregated prediction
	Error       string     `json:"error,omitempty"`
}

// Finished reports whether the session reached a terminal state.
func (s Session) Finished() bool {
	return s.State != "" && s.State != SessionRunning
}
