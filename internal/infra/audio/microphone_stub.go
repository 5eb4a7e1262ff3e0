//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// MicrophoneCapture stub when portaudio is not available
type MicrophoneCapture struct {
	logger *slog.Logger
}

func NewMicrophoneCapture(logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{logger: logger}
}

func (m *MicrophoneCapture) Name() string {
	return "microphone"
}

func (m *MicrophoneCapture) Start(_ context.Context, _ int) (io.ReadCloser, error) {
	return nil, fmt.Errorf("microphone capture not available: rebuild with -tags portaudio")
}

func (m *MicrophoneCapture) Stop() error {
	return nil
}
