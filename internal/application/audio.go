package application

import (
	"context"
	"io"
)

// AudioCapture produces raw audio from a recording device. The returned
// reader yields audio until Stop is called or ctx is cancelled; capture
// failures surface as read errors.
type AudioCapture interface {
	Start(ctx context.Context, sampleRate int) (io.ReadCloser, error)
	Stop() error
	Name() string
}

type Player interface {
	Play(ctx context.Context, path string) error
}
