package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mindtv/internal/models"
)

type SessionSQLite struct {
	db *sql.DB
}

func NewSessionSQLite(db *sql.DB) *SessionSQLite {
	return &SessionSQLite{db: db}
}

const (
	defaultSessionLimit = 100

	insertSessionSQL = `
		INSERT INTO sessions (id, port, baud_rate, duration_s, content, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	finishSessionSQL = `
		UPDATE sessions SET state=?, finished_at=?, sample_count=?, error=?
		WHERE id=?
	`

	labelSessionSQL = `UPDATE sessions SET label=? WHERE id=?`

	selectSessionColumns = `SELECT id, port, baud_rate, duration_s, content, state, started_at, finished_at, sample_count, label, error FROM sessions`

	selectSessionSQL = selectSessionColumns + ` WHERE id=?`

	listSessionsSQL = selectSessionColumns + ` ORDER BY started_at DESC LIMIT ?`
)

// Create inserts a new session row.
func (r *SessionSQLite) Create(ctx context.Context, s models.Session) error {
	_, err := r.db.ExecContext(ctx, insertSessionSQL,
		s.ID,
		s.Port,
		s.BaudRate,
		s.DurationSec,
		s.Content,
		s.State,
		formatTime(s.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}
	return nil
}

// Finish records the terminal state of a session.
func (r *SessionSQLite) Finish(ctx context.Context, id string, f SessionFinish) error {
	res, err := r.db.ExecContext(ctx, finishSessionSQL,
		f.State,
		formatTime(f.FinishedAt),
		f.SampleCount,
		f.Error,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// SetLabel stores the aggregated prediction of a session.
func (r *SessionSQLite) SetLabel(ctx context.Context, id, label string) error {
	res, err := r.db.ExecContext(ctx, labelSessionSQL, label, id)
	if err != nil {
		return fmt.Errorf("label session %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// Get returns ErrNotFound when no session has that id.
func (r *SessionSQLite) Get(ctx context.Context, id string) (models.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, selectSessionSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return models.Session{}, err
	}
	return s, nil
}

// List returns the most recent sessions first.
func (r *SessionSQLite) List(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	rows, err := r.db.QueryContext(ctx, listSessionsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Session, 0, 16)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (models.Session, error) {
	var (
		s          models.Session
		finishedAt sql.NullTime
		label      sql.NullString
		errText    sql.NullString
	)
	if err := row.Scan(
		&s.ID,
		&s.Port,
		&s.BaudRate,
		&s.DurationSec,
		&s.Content,
		&s.State,
		&s.StartedAt,
		&finishedAt,
		&s.SampleCount,
		&label,
		&errText,
	); err != nil {
		return models.Session{}, err
	}
	s.StartedAt = s.StartedAt.UTC()
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		s.FinishedAt = &t
	}
	s.Label = label.String
	s.Error = errText.String
	return s, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}
