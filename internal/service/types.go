package service

import (
	"time"

	"mindtv/internal/acquisition"
)

// StartParams describes a run requested by an operator. Zero values fall back
// to the configured device and duration.
type StartParams struct {
	Port     string
	BaudRate int
	Duration time.Duration
	Content  string // content type being watched, e.g. "Reality Show"
}

// Status is a point-in-time view of the acquisition slot.
type Status struct {
	State       string     `json:"state"` // idle | running | completed | cancelled | failed
	SessionID   string     `json:"session_id,omitempty"`
	Port        string     `json:"port,omitempty"`
	Content     string     `json:"content,omitempty"`
	Progress    int        `json:"progress"`
	Samples     int        `json:"samples"`
	ElapsedSec  float64    `json:"elapsed_sec"`
	DurationSec float64    `json:"duration_sec"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	Label       string     `json:"label,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Running reports whether a run currently holds the device.
func (s Status) Running() bool { return s.State == acquisition.StateRunning.String() }

// LogFilter supports history filtering by time range, type and session.
type LogFilter struct {
	From      time.Time // inclusive; zero means no lower bound
	To        time.Time // inclusive; zero means no upper bound
	Type      string    // "", "START", "COMPLETED", "CANCELLED", "FAILED", "CLASSIFIED", "EXPORTED"
	SessionID string
}
