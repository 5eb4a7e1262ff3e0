package application_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voice-qa/internal/application"
	"voice-qa/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type spoken struct {
	text   string
	resume bool
}

type fakeSpeaker struct {
	calls []spoken
}

func (f *fakeSpeaker) Speak(_ context.Context, text string, resume bool) {
	f.calls = append(f.calls, spoken{text: text, resume: resume})
}

func (f *fakeSpeaker) last(t *testing.T) spoken {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("expected a speak call, got none")
	}
	return f.calls[len(f.calls)-1]
}

type fakeCapture struct {
	starts atomic.Int32
	stops  atomic.Int32
	err    error
}

func (f *fakeCapture) Start(_ context.Context, _ int) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.starts.Add(1)
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (f *fakeCapture) Stop() error {
	f.stops.Add(1)
	return nil
}

func (f *fakeCapture) Name() string { return "fake" }

type fakeRecognizer struct {
	opened chan chan application.RecognitionEvent
	err    error
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{opened: make(chan chan application.RecognitionEvent, 64)}
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ io.Reader, _ application.RecognitionConfig) (<-chan application.RecognitionEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan application.RecognitionEvent, 8)
	select {
	case f.opened <- ch:
	default:
	}
	return ch, nil
}

func (f *fakeRecognizer) next(t *testing.T) chan application.RecognitionEvent {
	t.Helper()
	select {
	case ch := <-f.opened:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for recognition stream")
		return nil
	}
}

func final(transcript string) application.RecognitionEvent {
	return application.RecognitionEvent{
		Results: []application.RecognitionResult{{
			IsFinal:      true,
			Alternatives: []application.Alternative{{Transcript: transcript, Confidence: 0.9}},
		}},
	}
}

type fakeSynth struct {
	texts chan string
	err   error
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{texts: make(chan string, 16)}
}

func (f *fakeSynth) Synthesize(_ context.Context, req application.SynthesisRequest) ([]byte, error) {
	f.texts <- req.Text
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3:" + req.Text), nil
}

func (f *fakeSynth) next(t *testing.T) string {
	t.Helper()
	select {
	case text := <-f.texts:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for synthesis")
		return ""
	}
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
	err    error
	// block, when set, makes Play wait for ctx cancellation on matching paths
	block func(path string) bool
	// active counts Play calls that have not returned yet
	active atomic.Int32
}

func (f *fakePlayer) Play(ctx context.Context, path string) error {
	f.active.Add(1)
	defer f.active.Add(-1)

	f.mu.Lock()
	f.played = append(f.played, path)
	block := f.block
	err := f.err
	f.mu.Unlock()

	if block != nil && block(path) {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakePlayer) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.played {
		if p == path {
			n++
		}
	}
	return n
}

type fakeProber struct {
	avg time.Duration
	err error
	// block makes Probe wait for ctx cancellation, like a ping in flight
	block bool
}

func (f *fakeProber) Probe(ctx context.Context, _ string, _ int) (time.Duration, error) {
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return f.avg, f.err
}

type fakeCorpusSource struct {
	mu     sync.Mutex
	corpus *domain.Corpus
	err    error
}

func (f *fakeCorpusSource) Load(_ context.Context) (*domain.Corpus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.corpus, f.err
}

func (f *fakeCorpusSource) Name() string { return "fake" }

func (f *fakeCorpusSource) set(c *domain.Corpus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.corpus = c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func weatherCorpus() *domain.Corpus {
	return &domain.Corpus{
		Name: "Sam",
		Groups: []domain.AnswerGroup{{
			Label:     "basics",
			Activated: true,
			Entries: []domain.AnswerEntry{
				{Pattern: "weather", Answer: "It is sunny"},
			},
		}},
	}
}
