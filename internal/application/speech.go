package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

type VoiceConfig struct {
	LanguageCode string
	VoiceName    string
	Encoding     string
	Pitch        float64
}

type SynthesisRequest struct {
	Text  string
	Voice VoiceConfig
}

type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

type SpeechConfig struct {
	Voice      VoiceConfig
	OutputPath string
	DingPath   string
	// Delay is the pause between the end of playback and re-opening the
	// microphone, so the assistant does not hear itself.
	Delay time.Duration
}

// SpeechOutput runs one speak task at a time: synthesize, write the output
// file, play it and, if asked, report back after Delay so listening can
// resume. A new Speak supersedes the task in flight.
type SpeechOutput struct {
	synth   Synthesizer
	player  Player
	cfg     SpeechConfig
	metrics Metrics
	logger  *slog.Logger

	resumed chan uint64

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dingCancel context.CancelFunc

	// guards the output file across write and playback
	fileMu sync.Mutex
}

func NewSpeechOutput(synth Synthesizer, player Player, cfg SpeechConfig, metrics Metrics, logger *slog.Logger) *SpeechOutput {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &SpeechOutput{
		synth:   synth,
		player:  player,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		resumed: make(chan uint64),
	}
}

func (s *SpeechOutput) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Delay = d
}

func (s *SpeechOutput) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Delay
}

// Resumed delivers the generation of each task that finished playback and
// waited out the delay. Check it with IsCurrent before acting on it.
func (s *SpeechOutput) Resumed() <-chan uint64 {
	return s.resumed
}

func (s *SpeechOutput) IsCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *SpeechOutput) Speak(ctx context.Context, text string, resume bool) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	taskCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	delay := s.cfg.Delay
	s.mu.Unlock()

	s.logger.Info("speaking", "text", text, "resume", resume)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(taskCtx, gen, text, resume, delay)
	}()
}

func (s *SpeechOutput) run(ctx context.Context, gen uint64, text string, resume bool, delay time.Duration) {
	if err := s.say(ctx, text); err != nil {
		if ctx.Err() != nil {
			s.logger.Debug("speech superseded", "text", text)
			return
		}
		s.logger.Error("speech failed", "error", err)
		return
	}

	s.logger.Info("speech done", "text", text)

	if !resume {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	select {
	case <-ctx.Done():
	case s.resumed <- gen:
	}
}

func (s *SpeechOutput) say(ctx context.Context, text string) error {
	audio, err := s.synth.Synthesize(ctx, SynthesisRequest{Text: text, Voice: s.cfg.Voice})
	if err != nil {
		s.metrics.SpeechFailed("synthesize")
		return fmt.Errorf("synthesizing speech: %w", err)
	}

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if err := os.WriteFile(s.cfg.OutputPath, audio, 0o644); err != nil {
		s.metrics.SpeechFailed("write")
		return fmt.Errorf("writing %s: %w", s.cfg.OutputPath, err)
	}

	if err := s.player.Play(ctx, s.cfg.OutputPath); err != nil {
		s.metrics.SpeechFailed("play")
		return fmt.Errorf("playing %s: %w", s.cfg.OutputPath, err)
	}
	return nil
}

// Ding plays the notification cue without blocking. A new cue cuts off the
// previous one.
func (s *SpeechOutput) Ding(ctx context.Context) {
	if s.cfg.DingPath == "" {
		return
	}

	s.mu.Lock()
	if s.dingCancel != nil {
		s.dingCancel()
	}
	dingCtx, cancel := context.WithCancel(ctx)
	s.dingCancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.player.Play(dingCtx, s.cfg.DingPath); err != nil && dingCtx.Err() == nil {
			s.logger.Error("playing ding", "error", err)
		}
	}()
}

// Stop cancels the task and cue in flight and waits for them to return.
func (s *SpeechOutput) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.dingCancel != nil {
		s.dingCancel()
		s.dingCancel = nil
	}
	s.gen++
	s.mu.Unlock()

	s.wg.Wait()
}
