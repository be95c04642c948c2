package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindtv/internal/batch"
	"mindtv/internal/classify"
	"mindtv/internal/logger"
	"mindtv/internal/models"
	"mindtv/internal/repository"
)

var (
	ErrNoModel            = errors.New("no classification model loaded")
	ErrSessionNotFinished = errors.New("session is still running")
	ErrNoSamples          = errors.New("session has no samples")
)

type ClassificationService struct {
	sessions   repository.SessionRepo
	samples    repository.SampleRepo
	events     repository.EventRepo
	classifier classify.Classifier
	rec        interface{ Classified(error, float64) }
	log        *logger.Logger
}

func NewClassificationService(
	sessions repository.SessionRepo,
	samples repository.SampleRepo,
	events repository.EventRepo,
	classifier classify.Classifier,
	rec Recorder,
	log *logger.Logger,
) *ClassificationService {
	s := &ClassificationService{
		sessions:   sessions,
		samples:    samples,
		events:     events,
		classifier: classifier,
		log:        logger.OrNop(log).Named("classification"),
	}
	if rec != nil {
		s.rec = rec
	}
	return s
}

func (s *ClassificationService) Ready() bool { return s.classifier != nil }

// Classify labels a finished session from its stored samples.
func (s *ClassificationService) Classify(ctx context.Context, sessionID string) (classify.Result, error) {
	if !s.Ready() {
		return classify.Result{}, ErrNoModel
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return classify.Result{}, mapNotFound(err)
	}
	if !sess.Finished() {
		return classify.Result{}, ErrSessionNotFinished
	}
	samples, err := s.samples.List(ctx, sessionID)
	if err != nil {
		return classify.Result{}, err
	}
	return s.classifyBatch(ctx, sessionID, batch.FromSamples(samples))
}

// classifyBatch runs the model over b, stores the label and logs CLASSIFIED.
func (s *ClassificationService) classifyBatch(ctx context.Context, sessionID string, b *batch.Closed) (classify.Result, error) {
	start := time.Now()
	res, err := classify.Classify(b, s.classifier)
	if s.rec != nil {
		s.rec.Classified(err, time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, classify.ErrEmptyBatch) {
			return classify.Result{}, fmt.Errorf("%w: %v", ErrNoSamples, err)
		}
		s.log.Errorw("classification_failed", "session_id", sessionID, "err", err)
		return classify.Result{}, err
	}

	if err := s.sessions.SetLabel(ctx, sessionID, res.Label); err != nil {
		return classify.Result{}, fmt.Errorf("store label: %w", err)
	}
	if err := s.events.Append(ctx, models.RunEvent{
		SessionID:   sessionID,
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventClassified,
		Description: "Session classified as " + res.Label,
		Metadata: map[string]any{
			"label": res.Label,
			"votes": res.Count,
			"total": res.Total,
		},
	}); err != nil {
		s.log.Errorw("run_event_append_failed", "session_id", sessionID, "type", models.EventClassified, "err", err)
	}

	s.log.Infow("session_classified", "session_id", sessionID, "label", res.Label, "votes", res.Count, "total", res.Total)
	return res, nil
}
