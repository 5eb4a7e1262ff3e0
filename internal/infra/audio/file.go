package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const wavHeaderSize = 44

// FileCapture streams audio files dropped into a directory, one after the
// other, as if they had been spoken into a microphone. WAV headers are
// stripped; .raw and .pcm files are passed through.
type FileCapture struct {
	dir       string
	processed map[string]bool
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewFileCapture(dir string) *FileCapture {
	return &FileCapture{
		dir:       dir,
		processed: make(map[string]bool),
	}
}

func (f *FileCapture) Name() string {
	return "file"
}

func (f *FileCapture) Start(ctx context.Context, _ int) (io.ReadCloser, error) {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audio dir: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return nil, fmt.Errorf("file capture already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.pump(ctx, pw, f.done)

	return pr, nil
}

func (f *FileCapture) Stop() error {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (f *FileCapture) pump(ctx context.Context, pw *io.PipeWriter, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			pw.CloseWithError(ctx.Err())
			return
		case <-ticker.C:
			audio, err := f.checkForNewFile()
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if audio == nil {
				continue
			}
			if _, err := pw.Write(audio); err != nil {
				return
			}
		}
	}
}

func (f *FileCapture) checkForNewFile() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".wav" && ext != ".raw" && ext != ".pcm" {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", path, err)
		}

		f.processed[path] = true
		os.Rename(path, path+".processed")

		if ext == ".wav" && len(data) >= wavHeaderSize && bytes.HasPrefix(data, []byte("RIFF")) {
			data = data[wavHeaderSize:]
		}
		return data, nil
	}

	return nil, nil
}
