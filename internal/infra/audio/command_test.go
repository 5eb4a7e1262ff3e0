package audio_test

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"voice-qa/internal/infra/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireProgram(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestCommandCapture_ReadsStdout(t *testing.T) {
	requireProgram(t, "sh")

	capture := audio.NewCommandCapture("sh", []string{"-c", "printf 'rate={rate}'"}, discardLogger())

	r, err := capture.Start(context.Background(), 16000)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading stdout: %v", err)
	}
	if string(got) != "rate=16000" {
		t.Errorf("stdout = %q, want %q", got, "rate=16000")
	}

	if err := capture.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := capture.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestCommandCapture_StopKillsRecorder(t *testing.T) {
	requireProgram(t, "sleep")

	capture := audio.NewCommandCapture("sleep", []string{"30"}, discardLogger())

	if _, err := capture.Start(context.Background(), 16000); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := capture.Start(context.Background(), 16000); err == nil {
		t.Error("expected error starting a running recorder")
	}

	if err := capture.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestCommandCapture_MissingProgram(t *testing.T) {
	program := filepath.Join(t.TempDir(), "no-such-recorder")
	capture := audio.NewCommandCapture(program, nil, discardLogger())

	_, err := capture.Start(context.Background(), 16000)
	if err == nil || !strings.Contains(err.Error(), "starting") {
		t.Errorf("Start() error = %v, want starting error", err)
	}
}

func TestCommandPlayer(t *testing.T) {
	requireProgram(t, "true")
	requireProgram(t, "false")

	if err := audio.NewCommandPlayer([]string{"true"}).Play(context.Background(), "output.mp3"); err != nil {
		t.Errorf("Play() error = %v", err)
	}

	if err := audio.NewCommandPlayer([]string{"false"}).Play(context.Background(), "output.mp3"); err == nil {
		t.Error("expected error from failing player")
	}
}
