//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// MicrophoneCapture reads the default input device through portaudio and
// exposes it as a stream of little-endian 16-bit PCM.
type MicrophoneCapture struct {
	logger *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMicrophoneCapture(logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{logger: logger}
}

func (m *MicrophoneCapture) Name() string {
	return "microphone"
}

func (m *MicrophoneCapture) Start(ctx context.Context, sampleRate int) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return nil, fmt.Errorf("microphone already running")
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buffer), buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	m.stream = stream
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.pump(ctx, stream, buffer, pw, m.done)

	m.logger.Info("microphone started", "sampleRate", sampleRate)
	return pr, nil
}

func (m *MicrophoneCapture) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}

	m.cancel()
	<-m.done

	var err error
	if stopErr := m.stream.Stop(); stopErr != nil {
		err = fmt.Errorf("stopping stream: %w", stopErr)
	}
	m.stream.Close()
	portaudio.Terminate()
	m.stream = nil
	return err
}

func (m *MicrophoneCapture) pump(ctx context.Context, stream *portaudio.Stream, buffer []int16, pw *io.PipeWriter, done chan struct{}) {
	defer close(done)

	out := make([]byte, len(buffer)*2)
	for {
		select {
		case <-ctx.Done():
			pw.CloseWithError(ctx.Err())
			return
		default:
		}

		if err := stream.Read(); err != nil {
			pw.CloseWithError(fmt.Errorf("reading from stream: %w", err))
			return
		}

		for i, sample := range buffer {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
		}
		if _, err := pw.Write(out); err != nil {
			return
		}
	}
}
