package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"voice-qa/internal/domain"
)

var ErrSessionActive = errors.New("recognition session already active")

type RecognitionConfig struct {
	Encoding     string
	SampleRate   int
	LanguageCode string
}

type Alternative struct {
	Transcript string
	Confidence float64
}

type RecognitionResult struct {
	Alternatives []Alternative
	IsFinal      bool
}

// RecognitionEvent is one message from the backend. A non-nil Err is
// terminal: the backend closes the channel after sending it.
type RecognitionEvent struct {
	Results []RecognitionResult
	Err     error
}

type StreamingRecognizer interface {
	Recognize(ctx context.Context, audio io.Reader, cfg RecognitionConfig) (<-chan RecognitionEvent, error)
}

// StreamHandle is the live side of one recognition session.
type StreamHandle struct {
	ID         string
	Utterances <-chan domain.Utterance

	done chan struct{}
	err  error
}

// Done is closed once the stream has ended and Utterances is drained.
func (h *StreamHandle) Done() <-chan struct{} {
	return h.done
}

// Err reports why the stream ended. Valid after Done is closed; nil when the
// stream was stopped deliberately.
func (h *StreamHandle) Err() error {
	<-h.done
	return h.err
}

// RecognitionSession binds one audio capture to one recognition stream.
type RecognitionSession struct {
	capture    AudioCapture
	recognizer StreamingRecognizer
	cfg        RecognitionConfig
	logger     *slog.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	audio  io.ReadCloser
}

func NewRecognitionSession(capture AudioCapture, recognizer StreamingRecognizer, cfg RecognitionConfig, logger *slog.Logger) *RecognitionSession {
	return &RecognitionSession{
		capture:    capture,
		recognizer: recognizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start opens the capture device and the recognition stream. Callers must
// Stop an active session first.
func (s *RecognitionSession) Start(ctx context.Context) (*StreamHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil, ErrSessionActive
	}

	streamCtx, cancel := context.WithCancel(ctx)

	audio, err := s.capture.Start(streamCtx, s.cfg.SampleRate)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("starting %s capture: %w", s.capture.Name(), err)
	}

	events, err := s.recognizer.Recognize(streamCtx, audio, s.cfg)
	if err != nil {
		cancel()
		audio.Close()
		if stopErr := s.capture.Stop(); stopErr != nil {
			s.logger.Warn("stopping capture after failed stream", "error", stopErr)
		}
		return nil, fmt.Errorf("opening recognition stream: %w", err)
	}

	out := make(chan domain.Utterance)
	handle := &StreamHandle{
		ID:         uuid.NewString(),
		Utterances: out,
		done:       make(chan struct{}),
	}

	s.active = true
	s.cancel = cancel
	s.audio = audio

	s.logger.Info("recognition stream started", "stream", handle.ID, "capture", s.capture.Name())

	go s.forward(streamCtx, handle, events, out)

	return handle, nil
}

func (s *RecognitionSession) forward(ctx context.Context, handle *StreamHandle, events <-chan RecognitionEvent, out chan<- domain.Utterance) {
	defer close(handle.done)
	defer close(out)

	for {
		var (
			ev RecognitionEvent
			ok bool
		)
		select {
		case <-ctx.Done():
			return
		case ev, ok = <-events:
		}
		if !ok {
			return
		}

		if ev.Err != nil {
			if ctx.Err() == nil {
				handle.err = ev.Err
				s.logger.Error("recognition stream failed", "stream", handle.ID, "error", ev.Err)
			}
			return
		}

		transcript, ok := bestTranscript(ev)
		if !ok {
			continue
		}
		u, ok := domain.NormalizeUtterance(transcript)
		if !ok {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case out <- u:
		}
	}
}

// bestTranscript picks the top alternative of the first result, ignoring
// interim results.
func bestTranscript(ev RecognitionEvent) (string, bool) {
	if len(ev.Results) == 0 {
		return "", false
	}
	first := ev.Results[0]
	if !first.IsFinal || len(first.Alternatives) == 0 {
		return "", false
	}
	return first.Alternatives[0].Transcript, true
}

// Stop cancels the stream and stops the capture device. Undelivered events
// are dropped. Safe to call when no session is active.
func (s *RecognitionSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}

	s.cancel()
	s.cancel = nil
	s.active = false

	var errs []error
	if s.audio != nil {
		if err := s.audio.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing audio: %w", err))
		}
		s.audio = nil
	}
	if err := s.capture.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping %s capture: %w", s.capture.Name(), err))
	}
	return errors.Join(errs...)
}

func (s *RecognitionSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
