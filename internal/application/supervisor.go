package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"voice-qa/internal/domain"
)

var ErrEmptyUtterance = errors.New("empty utterance")

const DefaultRestartInterval = 45 * time.Second

// ExitError asks the process to exit with Code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return fmt.Sprintf("exit %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type SupervisorConfig struct {
	ProbeHost    string
	ProbeReplies int
	Delay        domain.DelayPolicy
	// RestartInterval bounds the lifetime of one recognition stream.
	// Non-positive values fall back to DefaultRestartInterval.
	RestartInterval time.Duration
	// RefreshInterval re-syncs the corpus; zero disables refreshing.
	RefreshInterval time.Duration
}

// Supervisor owns the session state and runs the single event loop that
// feeds the controller.
type Supervisor struct {
	cfg        SupervisorConfig
	prober     LatencyProber
	session    *RecognitionSession
	speech     *SpeechOutput
	corpus     *CorpusStore
	controller *Controller
	notifier   Notifier
	metrics    Metrics
	logger     *slog.Logger

	state    SessionState
	injected chan domain.Utterance
	status   atomic.Pointer[Status]
}

func NewSupervisor(
	cfg SupervisorConfig,
	prober LatencyProber,
	session *RecognitionSession,
	speech *SpeechOutput,
	corpus *CorpusStore,
	hotwords Hotwords,
	replies Replies,
	notifier Notifier,
	metrics Metrics,
	logger *slog.Logger,
) *Supervisor {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	if cfg.RestartInterval <= 0 {
		logger.Warn("invalid restart interval, using default",
			"value", cfg.RestartInterval,
			"default", DefaultRestartInterval,
		)
		cfg.RestartInterval = DefaultRestartInterval
	}
	s := &Supervisor{
		cfg:      cfg,
		prober:   prober,
		session:  session,
		speech:   speech,
		corpus:   corpus,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		injected: make(chan domain.Utterance),
	}
	s.controller = NewController(hotwords, replies, corpus, speech, &s.state, metrics, logger.With("component", "controller"))
	s.publish()
	return s
}

// Run probes the network, starts recognition and processes events until the
// exit hotword, a startup failure or ctx cancellation. Hotword exit and
// startup failure are reported as *ExitError.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.speech.Stop()

	avg, err := s.prober.Probe(ctx, s.cfg.ProbeHost, s.cfg.ProbeReplies)
	if err != nil && ctx.Err() != nil {
		s.Cleanup()
		return ctx.Err()
	}
	if err != nil {
		s.logger.Error("probing latency", "host", s.cfg.ProbeHost, "error", err)
		s.Cleanup()
		s.notify(ctx, fmt.Sprintf("Assistant failed to start: %v", err))
		return &ExitError{Code: 1, Err: fmt.Errorf("probing latency: %w", err)}
	}

	delay := s.cfg.Delay.Delay(avg)
	s.speech.SetDelay(delay)
	s.logger.Info("started", "ping", avg, "delay", delay)
	s.speech.Ding(ctx)
	s.notify(ctx, "Assistant started")

	if err := s.corpus.Sync(ctx); err != nil {
		s.logger.Error("initial corpus sync", "error", err)
	}
	if s.cfg.RefreshInterval > 0 {
		s.corpus.StartPeriodicSync(ctx, s.cfg.RefreshInterval)
	}

	s.restart(ctx)

	ticker := time.NewTicker(s.cfg.RestartInterval)
	defer ticker.Stop()

	for {
		s.publish()

		var utterances <-chan domain.Utterance
		if s.state.Stream != nil {
			utterances = s.state.Stream.Utterances
		}

		select {
		case <-ctx.Done():
			s.Cleanup()
			return ctx.Err()

		case <-ticker.C:
			s.restart(ctx)

		case u, ok := <-utterances:
			if !ok {
				s.streamEnded()
				continue
			}
			if s.dispatch(ctx, u) {
				return &ExitError{Code: 0}
			}

		case u := <-s.injected:
			if s.dispatch(ctx, u) {
				return &ExitError{Code: 0}
			}

		case gen := <-s.speech.Resumed():
			if s.speech.IsCurrent(gen) && s.controller.ResumeListening() {
				s.speech.Ding(ctx)
			}
		}
	}
}

// dispatch hands u to the controller and reports whether the process
// should exit.
func (s *Supervisor) dispatch(ctx context.Context, u domain.Utterance) bool {
	if s.controller.Handle(ctx, u) != OutcomeExit {
		return false
	}
	s.speech.Stop()
	s.Cleanup()
	s.publish()
	s.notify(ctx, "Assistant stopped by voice command")
	s.logger.Info("cleanup complete, exiting")
	return true
}

func (s *Supervisor) restart(ctx context.Context) {
	if s.state.Recording {
		s.logger.Info("found active recording session, restarting")
		s.Cleanup()
	}

	handle, err := s.session.Start(ctx)
	if err != nil {
		s.logger.Error("starting recognition session", "error", err)
		return
	}

	s.state.Stream = handle
	s.state.Recording = true
	s.metrics.SessionRestarted()
}

func (s *Supervisor) streamEnded() {
	handle := s.state.Stream
	if err := handle.Err(); err != nil {
		s.logger.Warn("recognition stream ended, waiting for restart", "stream", handle.ID, "error", err)
	} else {
		s.logger.Info("recognition stream ended, waiting for restart", "stream", handle.ID)
	}
	s.Cleanup()
}

// Cleanup detaches the stream, stops capture and clears the recording flag.
// It is idempotent. Run calls it itself; call it directly only while Run is
// not running.
func (s *Supervisor) Cleanup() {
	s.state.Stream = nil
	if err := s.session.Stop(); err != nil {
		s.logger.Warn("stopping recognition session", "error", err)
	}
	s.state.Recording = false
	s.logger.Info("cleanup complete")
}

// Inject feeds text into the event loop as if it had been recognized.
func (s *Supervisor) Inject(ctx context.Context, text string) error {
	u, ok := domain.NormalizeUtterance(text)
	if !ok {
		return ErrEmptyUtterance
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.injected <- u:
		return nil
	}
}

func (s *Supervisor) Status() Status {
	return *s.status.Load()
}

func (s *Supervisor) publish() {
	table := s.corpus.Current()
	st := &Status{
		Mode:      s.state.Mode.String(),
		Listening: s.state.Listening,
		Recording: s.state.Recording,
		Corpus:    table.Name,
		Entries:   table.Len(),
	}
	if s.state.Stream != nil {
		st.StreamID = s.state.Stream.ID
	}
	s.status.Store(st)
}

func (s *Supervisor) notify(ctx context.Context, message string) {
	if err := s.notifier.Notify(ctx, message); err != nil {
		s.logger.Error("notifying", "error", err)
	}
}
