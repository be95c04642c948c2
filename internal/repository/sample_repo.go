package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mindtv/internal/models"
)

type SampleSQLite struct {
	db *sql.DB
}

func NewSampleSQLite(db *sql.DB) *SampleSQLite { return &SampleSQLite{db: db} }

const (
	insertSampleSQL  = `INSERT INTO samples (session_id, seq, ir, bpm, avg_bpm, gsr) VALUES (?, ?, ?, ?, ?, ?)`
	selectSamplesSQL = `SELECT ir, bpm, avg_bpm, gsr FROM samples WHERE session_id = ? ORDER BY seq ASC`
)

// SaveBatch stores samples in arrival order inside a single transaction.
func (r *SampleSQLite) SaveBatch(ctx context.Context, sessionID string, samples []models.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin samples tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range samples {
		if _, err := stmt.ExecContext(ctx, sessionID, i, s.IR, s.BPM, s.AvgBPM, s.GSR); err != nil {
			return fmt.Errorf("insert sample %d of session %s: %w", i, sessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit samples tx: %w", err)
	}
	return nil
}

// List returns a session's samples in arrival order.
func (r *SampleSQLite) List(ctx context.Context, sessionID string) ([]models.Sample, error) {
	rows, err := r.db.QueryContext(ctx, selectSamplesSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Sample, 0, 256)
	for rows.Next() {
		var s models.Sample
		if err := rows.Scan(&s.IR, &s.BPM, &s.AvgBPM, &s.GSR); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
