package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mindtv/internal/export"
	"mindtv/internal/models"
	"mindtv/internal/repository"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionService struct {
	sessions repository.SessionRepo
	samples  repository.SampleRepo
}

func NewSessionService(sessions repository.SessionRepo, samples repository.SampleRepo) *SessionService {
	return &SessionService{sessions: sessions, samples: samples}
}

func (s *SessionService) List(ctx context.Context, limit int) ([]models.Session, error) {
	return s.sessions.List(ctx, limit)
}

func (s *SessionService) Get(ctx context.Context, id string) (models.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return models.Session{}, mapNotFound(err)
	}
	return sess, nil
}

// Samples returns the stored samples of a session in arrival order. A running
// session has none until it ends.
func (s *SessionService) Samples(ctx context.Context, id string) ([]models.Sample, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.samples.List(ctx, id)
}

// Export writes a session's samples as CSV, tagging rows with its content type.
func (s *SessionService) Export(ctx context.Context, id string, layout export.Layout, w io.Writer) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	samples, err := s.samples.List(ctx, id)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(w, samples, layout, sess.Content); err != nil {
		return fmt.Errorf("export session %s: %w", id, err)
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return err
}
