// Package acquisition drives one time-bounded read of the sensor board: it owns the
// transport, validates every line, buffers samples and reports progress to a Sink.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mindtv/internal/batch"
	"mindtv/internal/codec"
	"mindtv/internal/logger"
	"mindtv/internal/transport"
)

// DefaultReadTimeout bounds a single read and therefore cancellation latency.
const DefaultReadTimeout = 200 * time.Millisecond

var (
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrIO                   = errors.New("transport i/o error")
	ErrEngineUsed           = errors.New("engine already started; use a new engine per run")
	ErrInvalidConfig        = errors.New("invalid acquisition config")
)

// State of an engine. Completed, Cancelled and Failed are final.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Config describes one run.
type Config struct {
	Port         string
	BaudRate     int
	Duration     time.Duration
	ReadTimeout  time.Duration // zero means DefaultReadTimeout
	StartCommand []byte        // written once the transport is open, e.g. "L"
	StopCommand  []byte        // written before the transport is closed, e.g. "D"
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("%w: port is required", ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration must be >= 0, got %s", ErrInvalidConfig, c.Duration)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("%w: read timeout must be >= 0, got %s", ErrInvalidConfig, c.ReadTimeout)
	}
	return nil
}

// Recorder receives counters about a run. internal/metrics implements it.
type Recorder interface {
	LineRead()
	SampleAccepted()
	LineDropped()
	RunStarted()
	RunFinished(state string, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) LineRead() {}
func (nopRecorder) SampleAccepted() {}
func (nopRecorder) LineDropped() {}
func (nopRecorder) RunStarted() {}
func (nopRecorder) RunFinished(string, float64) {}

// Engine runs a single acquisition. It cannot be restarted.
type Engine struct {
	opener transport.Opener
	sink   Sink
	rec    Recorder
	log    *logger.Logger

	mu    sync.Mutex
	state atomic.Int32
}

// Option configures an Engine.
type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.rec = r
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = logger.OrNop(l) }
}

// NewEngine returns an idle engine that opens its transport through opener and
// reports to sink. A nil sink discards events.
func NewEngine(opener transport.Opener, sink Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = Discard
	}
	e := &Engine{
		opener: opener,
		sink:   sink,
		rec:    nopRecorder{},
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the engine's current state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start opens the transport and launches the read loop on its own goroutine.
// If the transport cannot be opened the engine stays idle and the error wraps
// ErrTransportUnavailable. Cancelling ctx cancels the run.
func (e *Engine) Start(ctx context.Context, cfg Config) (*Run, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State() != StateIdle {
		return nil, ErrEngineUsed
	}

	tr, err := e.opener.Open(cfg.Port, cfg.BaudRate)
	if err != nil {
		e.log.Errorw("acquisition_open_failed", "port", cfg.Port, "err", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrTransportUnavailable, cfg.Port, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		engine:    e,
		cfg:       cfg,
		tr:        tr,
		ctx:       runCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
		buf:       batch.New(),
		startedAt: time.Now(),
	}
	e.state.Store(int32(StateRunning))
	e.rec.RunStarted()
	e.log.Infow("acquisition_started", "port", cfg.Port, "baud", cfg.BaudRate, "duration", cfg.Duration)

	go r.loop()
	return r, nil
}

// Outcome is the final result of a run.
type Outcome struct {
	State   State
	Batch   *batch.Closed // always set once the run is over, possibly empty
	Err     error         // wraps ErrIO when State is StateFailed
	Elapsed time.Duration
}

// Run is the handle of an active or finished acquisition.
type Run struct {
	engine    *Engine
	cfg       Config
	tr        transport.Transport
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	buf       *batch.Batch
	startedAt time.Time
	progress  atomic.Int32
	outcome   Outcome
}

// Cancel asks the loop to stop at its next iteration boundary.
// It returns immediately and is a no-op once the run is over.
func (r *Run) Cancel() { r.cancel() }

// Done is closed after the terminal event has been emitted.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run is over.
func (r *Run) Wait() Outcome {
	<-r.done
	return r.outcome
}

func (r *Run) State() State { return r.engine.State() }
func (r *Run) Config() Config { return r.cfg }
func (r *Run) StartedAt() time.Time { return r.startedAt }
func (r *Run) Progress() int { return int(r.progress.Load()) }
func (r *Run) SamplesBuffered() int { return r.buf.Len() }
func (r *Run) Elapsed() time.Duration { return time.Since(r.startedAt) }

func (r *Run) loop() {
	defer close(r.done)
	defer r.cancel()

	state, err := r.read()
	r.finish(state, err)
}

// read runs until the duration elapses, the run is cancelled or the transport fails.
func (r *Run) read() (State, error) {
	if len(r.cfg.StartCommand) > 0 {
		if err := r.tr.Write(r.cfg.StartCommand); err != nil {
			return StateFailed, fmt.Errorf("%w: write start command: %v", ErrIO, err)
		}
	}

	for {
		if r.ctx.Err() != nil {
			return StateCancelled, nil
		}
		elapsed := time.Since(r.startedAt)
		if elapsed >= r.cfg.Duration {
			return StateCompleted, nil
		}

		wait := r.cfg.ReadTimeout
		if remaining := r.cfg.Duration - elapsed; remaining < wait {
			wait = remaining
		}
		line, err := r.tr.ReadLine(wait)
		if errors.Is(err, transport.ErrTimeout) {
			continue
		}
		if err != nil {
			return StateFailed, fmt.Errorf("%w: %v", ErrIO, err)
		}
		if line == "" {
			continue
		}
		r.handleLine(line)
	}
}

func (r *Run) handleLine(line string) {
	e := r.engine
	e.rec.LineRead()
	e.sink.Emit(logLineEvent(line))

	if s, err := codec.Parse(line); err != nil {
		e.rec.LineDropped()
		e.log.Debugw("acquisition_line_dropped", "line", line, "err", err)
	} else if err := r.buf.Append(s); err == nil {
		e.rec.SampleAccepted()
	}

	pct := percent(time.Since(r.startedAt), r.cfg.Duration)
	r.progress.Store(int32(pct))
	e.sink.Emit(progressEvent(pct))
}

// finish leaves the device quiet, releases the transport and emits the terminal event.
func (r *Run) finish(state State, runErr error) {
	e := r.engine

	if len(r.cfg.StopCommand) > 0 {
		if err := r.tr.Write(r.cfg.StopCommand); err != nil {
			e.log.Warnw("acquisition_stop_command_failed", "port", r.cfg.Port, "err", err)
		}
	}
	if err := r.tr.Close(); err != nil {
		e.log.Warnw("acquisition_close_failed", "port", r.cfg.Port, "err", err)
	}

	closed, err := r.buf.Close()
	if err != nil {
		// unreachable: only finish closes the buffer
		closed = batch.FromSamples(nil)
	}

	elapsed := time.Since(r.startedAt)
	r.outcome = Outcome{State: state, Batch: closed, Err: runErr, Elapsed: elapsed}
	e.state.Store(int32(state))
	e.rec.RunFinished(state.String(), elapsed.Seconds())

	if state == StateFailed {
		e.log.Errorw("acquisition_failed", "port", r.cfg.Port, "samples", closed.Len(), "err", runErr)
		e.sink.Emit(failedEvent(KindIO, runErr.Error(), closed.Len()))
		return
	}
	e.log.Infow("acquisition_finished", "port", r.cfg.Port, "state", state.String(), "samples", closed.Len(), "elapsed", elapsed)
	e.sink.Emit(completedEvent(closed, state == StateCancelled))
}

// percent is min(100, floor(100*elapsed/duration)); a zero duration is complete.
func percent(elapsed, duration time.Duration) int {
	if duration <= 0 || elapsed >= duration {
		return 100
	}
	if elapsed <= 0 {
		return 0
	}
	return int(int64(elapsed) * 100 / int64(duration))
}
