package audio_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voice-qa/internal/infra/audio"
)

func TestFileCapture_StreamsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	capture := audio.NewFileCapture(dir)

	r, err := capture.Start(context.Background(), 16000)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer capture.Stop()

	wav := append([]byte("RIFF"), make([]byte, 40)...)
	wav = append(wav, []byte("pcm-data")...)
	if err := os.WriteFile(filepath.Join(dir, "question.wav"), wav, 0644); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, len("pcm-data"))
	done := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(r, got)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for audio")
	}

	if string(got) != "pcm-data" {
		t.Errorf("stream = %q, want %q (header stripped)", got, "pcm-data")
	}

	if _, err := os.Stat(filepath.Join(dir, "question.wav.processed")); err != nil {
		t.Errorf("file not marked processed: %v", err)
	}
}

func TestFileCapture_StopClosesStream(t *testing.T) {
	capture := audio.NewFileCapture(t.TempDir())

	r, err := capture.Start(context.Background(), 16000)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := capture.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := capture.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}

	if _, err := r.Read(make([]byte, 1)); err == nil {
		t.Error("expected read error after Stop")
	}
}

func TestFileCapture_StartTwice(t *testing.T) {
	capture := audio.NewFileCapture(t.TempDir())

	if _, err := capture.Start(context.Background(), 16000); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer capture.Stop()

	if _, err := capture.Start(context.Background(), 16000); err == nil {
		t.Error("expected error starting an already running capture")
	}
}
