package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mindtv/internal/acquisition"
	"mindtv/internal/export"
	"mindtv/internal/logger"
	"mindtv/internal/models"
	"mindtv/internal/repository"
	"mindtv/internal/transport"

	"github.com/google/uuid"
)

var (
	ErrRunInProgress        = errors.New("an acquisition is already running")
	ErrInvalidDuration      = errors.New("invalid acquisition duration")
	ErrTransportUnavailable = acquisition.ErrTransportUnavailable
)

const finalizeTimeout = 30 * time.Second

// AcquisitionSettings are the configured device and run defaults.
type AcquisitionSettings struct {
	Port            string
	BaudRate        int
	ReadTimeout     time.Duration
	StartCommand    []byte
	StopCommand     []byte
	DefaultDuration time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
	ExportDir       string // empty disables automatic export
	ExportBase      string
	ExportLayout    export.Layout
	StatusInterval  time.Duration
}

type activeRun struct {
	session models.Session
	run     *acquisition.Run
}

type AcquisitionService struct {
	opener     transport.Opener
	sessions   repository.SessionRepo
	samples    repository.SampleRepo
	events     repository.EventRepo
	classifier *ClassificationService
	publishers []EventPublisher
	rec        acquisition.Recorder
	cfg        AcquisitionSettings
	log        *logger.Logger

	mu     sync.Mutex
	active *activeRun
	last   *Status
	wg     sync.WaitGroup
}

func NewAcquisitionService(
	opener transport.Opener,
	repos *repository.Repository,
	classifier *ClassificationService,
	publishers []EventPublisher,
	rec acquisition.Recorder,
	cfg AcquisitionSettings,
	log *logger.Logger,
) *AcquisitionService {
	if cfg.ExportBase == "" {
		cfg.ExportBase = "coleta_dados"
	}
	return &AcquisitionService{
		opener:     opener,
		sessions:   repos.SessionRepo,
		samples:    repos.SampleRepo,
		events:     repos.EventRepo,
		classifier: classifier,
		publishers: publishers,
		rec:        rec,
		cfg:        cfg,
		log:        logger.OrNop(log).Named("acquisition"),
	}
}

func (s *AcquisitionService) resolve(p StartParams) (StartParams, error) {
	if strings.TrimSpace(p.Port) == "" {
		p.Port = s.cfg.Port
	}
	if p.BaudRate <= 0 {
		p.BaudRate = s.cfg.BaudRate
	}
	if p.Duration == 0 {
		p.Duration = s.cfg.DefaultDuration
	}
	if p.Duration < s.cfg.MinDuration || (s.cfg.MaxDuration > 0 && p.Duration > s.cfg.MaxDuration) {
		return p, fmt.Errorf("%w: %s not within [%s, %s]", ErrInvalidDuration, p.Duration, s.cfg.MinDuration, s.cfg.MaxDuration)
	}
	p.Content = strings.TrimSpace(p.Content)
	return p, nil
}

// Start opens the device and begins a run. It returns as soon as the run is
// reading; results are stored when the run ends.
func (s *AcquisitionService) Start(ctx context.Context, p StartParams) (models.Session, error) {
	p, err := s.resolve(p)
	if err != nil {
		return models.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return models.Session{}, ErrRunInProgress
	}

	sess := models.Session{
		ID:          uuid.NewString(),
		Port:        p.Port,
		BaudRate:    p.BaudRate,
		DurationSec: int(p.Duration / time.Second),
		Content:     p.Content,
		State:       models.SessionRunning,
		StartedAt:   time.Now().UTC(),
	}

	sink := acquisition.SinkFunc(func(e acquisition.Event) {
		for _, pub := range s.publishers {
			pub.Publish(sess.ID, e)
		}
	})
	var opts []acquisition.Option
	opts = append(opts, acquisition.WithLogger(s.log.With("session_id", sess.ID)))
	if s.rec != nil {
		opts = append(opts, acquisition.WithRecorder(s.rec))
	}
	engine := acquisition.NewEngine(s.opener, sink, opts...)

	// the run outlives the request that started it
	run, err := engine.Start(context.WithoutCancel(ctx), acquisition.Config{
		Port:         p.Port,
		BaudRate:     p.BaudRate,
		Duration:     p.Duration,
		ReadTimeout:  s.cfg.ReadTimeout,
		StartCommand: s.cfg.StartCommand,
		StopCommand:  s.cfg.StopCommand,
	})
	if err != nil {
		s.log.Errorw("acquisition_start_failed", "port", p.Port, "err", err)
		return models.Session{}, err
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		run.Cancel()
		run.Wait()
		return models.Session{}, fmt.Errorf("store session: %w", err)
	}
	s.appendEvent(ctx, sess.ID, models.EventStart, "Acquisition started on "+sess.Port, map[string]any{
		"port":         sess.Port,
		"baud_rate":    sess.BaudRate,
		"duration_sec": sess.DurationSec,
		"content":      sess.Content,
	})

	s.active = &activeRun{session: sess, run: run}
	s.last = nil
	s.wg.Add(1)
	go s.await(s.active)

	s.log.Infow("acquisition_session_started", "session_id", sess.ID, "port", sess.Port, "duration_sec", sess.DurationSec)
	return sess, nil
}

// Cancel asks the active run to stop. It is a no-op when nothing is running.
func (s *AcquisitionService) Cancel(ctx context.Context) error {
	s.mu.Lock()
	ar := s.active
	s.mu.Unlock()
	if ar == nil {
		return nil
	}
	ar.run.Cancel()
	s.log.Infow("acquisition_cancel_requested", "session_id", ar.session.ID)
	return nil
}

func (s *AcquisitionService) Status(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ar := s.active; ar != nil {
		started := ar.run.StartedAt().UTC()
		return Status{
			State:       ar.run.State().String(),
			SessionID:   ar.session.ID,
			Port:        ar.session.Port,
			Content:     ar.session.Content,
			Progress:    ar.run.Progress(),
			Samples:     ar.run.SamplesBuffered(),
			ElapsedSec:  ar.run.Elapsed().Seconds(),
			DurationSec: ar.run.Config().Duration.Seconds(),
			StartedAt:   &started,
		}
	}
	if s.last != nil {
		return *s.last
	}
	return Status{State: acquisition.StateIdle.String()}
}

// Shutdown cancels an active run and waits until its results are stored.
func (s *AcquisitionService) Shutdown(ctx context.Context) error {
	_ = s.Cancel(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AcquisitionService) await(ar *activeRun) {
	defer s.wg.Done()

	out := ar.run.Wait()
	st := s.finalize(ar.session, ar.run.Config().Duration, out)

	s.mu.Lock()
	s.active = nil
	s.last = &st
	s.mu.Unlock()
}

// finalize stores the outcome of a run. Storage failures are logged; the
// terminal state reported to subscribers has already been emitted.
func (s *AcquisitionService) finalize(sess models.Session, duration time.Duration, out acquisition.Outcome) Status {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	log := s.log.With("session_id", sess.ID)
	samples := out.Batch.Samples()

	if err := s.samples.SaveBatch(ctx, sess.ID, samples); err != nil {
		log.Errorw("acquisition_samples_store_failed", "samples", len(samples), "err", err)
	}

	state, evType, desc := models.SessionCompleted, models.EventCompleted, "Acquisition completed"
	errText := ""
	switch out.State {
	case acquisition.StateCancelled:
		state, evType, desc = models.SessionCancelled, models.EventCancelled, "Acquisition cancelled"
	case acquisition.StateFailed:
		state, evType, desc = models.SessionFailed, models.EventFailed, "Acquisition failed"
		if out.Err != nil {
			errText = out.Err.Error()
		}
	}

	finishedAt := time.Now().UTC()
	if err := s.sessions.Finish(ctx, sess.ID, repository.SessionFinish{
		State:       state,
		FinishedAt:  finishedAt,
		SampleCount: len(samples),
		Error:       errText,
	}); err != nil {
		log.Errorw("acquisition_session_finish_failed", "err", err)
	}

	meta := map[string]any{"samples": len(samples), "elapsed_sec": out.Elapsed.Seconds()}
	if errText != "" {
		meta["error"] = errText
	}
	s.appendEvent(ctx, sess.ID, evType, desc, meta)

	status := Status{
		State:       out.State.String(),
		SessionID:   sess.ID,
		Port:        sess.Port,
		Content:     sess.Content,
		Progress:    100,
		Samples:     len(samples),
		ElapsedSec:  out.Elapsed.Seconds(),
		DurationSec: duration.Seconds(),
		StartedAt:   &sess.StartedAt,
		Error:       errText,
	}
	if out.State != acquisition.StateCompleted {
		status.Progress = percentOf(out.Elapsed, duration)
	}

	if len(samples) == 0 {
		return status
	}

	if s.cfg.ExportDir != "" {
		path, err := export.WriteFile(s.cfg.ExportDir, s.cfg.ExportBase, samples, s.cfg.ExportLayout, sess.Content)
		if err != nil {
			log.Errorw("acquisition_export_failed", "dir", s.cfg.ExportDir, "err", err)
		} else {
			log.Infow("acquisition_exported", "path", path, "samples", len(samples))
			s.appendEvent(ctx, sess.ID, models.EventExported, "Samples exported to "+path, map[string]any{"path": path, "samples": len(samples)})
		}
	}

	if s.classifier != nil && s.classifier.Ready() {
		res, err := s.classifier.classifyBatch(ctx, sess.ID, out.Batch)
		if err != nil {
			log.Warnw("acquisition_auto_classify_failed", "err", err)
		} else {
			status.Label = res.Label
		}
	}
	return status
}

func (s *AcquisitionService) appendEvent(ctx context.Context, sessionID, typ, desc string, meta map[string]any) {
	err := s.events.Append(ctx, models.RunEvent{
		SessionID:   sessionID,
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Errorw("run_event_append_failed", "session_id", sessionID, "type", typ, "err", err)
	}
}

func percentOf(elapsed, total time.Duration) int {
	if total <= 0 || elapsed >= total {
		return 100
	}
	return int(int64(elapsed) * 100 / int64(total))
}
