package service

import (
	"context"
	"io"

	"mindtv/internal/acquisition"
	"mindtv/internal/classify"
	"mindtv/internal/export"
	"mindtv/internal/logger"
	"mindtv/internal/models"
	"mindtv/internal/repository"
	"mindtv/internal/transport"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Acquisition owns the single device slot: at most one run at a time.
type Acquisition interface {
	Start(ctx context.Context, p StartParams) (models.Session, error)
	Cancel(ctx context.Context) error
	Status(ctx context.Context) Status
}

// Sessions exposes finished and running sessions and their samples.
type Sessions interface {
	List(ctx context.Context, limit int) ([]models.Session, error)
	Get(ctx context.Context, id string) (models.Session, error)
	Samples(ctx context.Context, id string) ([]models.Sample, error)
	Export(ctx context.Context, id string, layout export.Layout, w io.Writer) error
}

// Classification labels a finished session with the loaded model.
type Classification interface {
	Classify(ctx context.Context, sessionID string) (classify.Result, error)
	Ready() bool
}

// EventLog exposes the append-only run log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.RunEvent, error)
}

// Broadcaster periodically pushes status snapshots to live subscribers.
// Stop via context cancellation in main() for graceful shutdown.
type Broadcaster interface {
	Run(ctx context.Context)
}

// Service aggregates all sub-services.
type Service struct {
	Acquisition
	Sessions
	Classification
	EventLog
	Authorization
	Broadcaster

	Hub *Hub

	acq *AcquisitionService
}

// Deps carries what the services need beyond the repositories.
type Deps struct {
	Opener     transport.Opener
	Classifier classify.Classifier // nil disables classification
	Recorder   Recorder            // nil disables metrics
	Publishers []EventPublisher    // extra event consumers, e.g. MQTT
	Settings   AcquisitionSettings
	Auth       AuthSettings
	Log        *logger.Logger
}

// Recorder is the metrics surface used by the services.
type Recorder interface {
	acquisition.Recorder
	Classified(err error, seconds float64)
}

func NewService(repos *repository.Repository, deps Deps) *Service {
	log := logger.OrNop(deps.Log)
	hub := NewHub()

	classification := NewClassificationService(repos.SessionRepo, repos.SampleRepo, repos.EventRepo, deps.Classifier, deps.Recorder, log)

	publishers := append([]EventPublisher{hub}, deps.Publishers...)
	acq := NewAcquisitionService(deps.Opener, repos, classification, publishers, deps.Recorder, deps.Settings, log)

	return &Service{
		Acquisition:    acq,
		Sessions:       NewSessionService(repos.SessionRepo, repos.SampleRepo),
		Classification: classification,
		EventLog:       NewEventLogService(repos.EventRepo),
		Authorization:  NewAuthService(repos.Auth, deps.Auth),
		Broadcaster:    NewStatusBroadcaster(acq, hub, deps.Settings.StatusInterval),
		Hub:            hub,
		acq:            acq,
	}
}

// Shutdown cancels an active run and waits for its results to be stored.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.acq.Shutdown(ctx)
}
