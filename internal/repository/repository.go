package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mindtv/internal/models"
)

var ErrNotFound = errors.New("not found")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02 15:04:05.000"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// SessionFinish is what a run leaves behind once it stops.
type SessionFinish struct {
	State       string
	FinishedAt  time.Time
	SampleCount int
	Error       string
}

type SessionRepo interface {
	Create(ctx context.Context, s models.Session) error
	Finish(ctx context.Context, id string, f SessionFinish) error
	SetLabel(ctx context.Context, id, label string) error
	Get(ctx context.Context, id string) (models.Session, error)
	List(ctx context.Context, limit int) ([]models.Session, error)
}

type SampleRepo interface {
	SaveBatch(ctx context.Context, sessionID string, samples []models.Sample) error
	List(ctx context.Context, sessionID string) ([]models.Sample, error)
}

// EventFilter narrows a run log query. Zero fields do not filter.
type EventFilter struct {
	From      time.Time
	To        time.Time
	Type      string
	SessionID string
}

type EventRepo interface {
	Append(ctx context.Context, e models.RunEvent) error
	List(ctx context.Context, f EventFilter) ([]models.RunEvent, error)
}

type Repository struct {
	SessionRepo SessionRepo
	SampleRepo  SampleRepo
	EventRepo   EventRepo
	Auth        Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		SessionRepo: NewSessionSQLite(db),
		SampleRepo:  NewSampleSQLite(db),
		EventRepo:   NewEventSQLite(db),
		Auth:        NewOperatorRepository(db),
	}
}
