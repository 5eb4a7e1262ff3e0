package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voice-qa/internal/domain"
)

// FileSource loads the corpus from a local JSON or YAML file, chosen by
// extension.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return "file " + s.path
}

func (s *FileSource) Load(_ context.Context) (*domain.Corpus, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}
