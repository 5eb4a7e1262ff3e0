package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voice-qa/internal/domain"
)

type CorpusSource interface {
	Load(ctx context.Context) (*domain.Corpus, error)
	Name() string
}

// CorpusStore holds the compiled answer table. Readers always see either the
// previous table or the new one, never a partial swap.
type CorpusStore struct {
	source  CorpusSource
	metrics Metrics
	logger  *slog.Logger

	mu    sync.RWMutex
	table *AnswerTable
}

func NewCorpusStore(source CorpusSource, metrics Metrics, logger *slog.Logger) *CorpusStore {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &CorpusStore{
		source:  source,
		metrics: metrics,
		logger:  logger,
		table:   &AnswerTable{},
	}
}

func (s *CorpusStore) Sync(ctx context.Context) error {
	if s.source == nil {
		return nil
	}

	corpus, err := s.source.Load(ctx)
	if err != nil {
		s.metrics.CorpusSynced(err)
		return fmt.Errorf("loading corpus from %s: %w", s.source.Name(), err)
	}

	s.Replace(corpus)
	s.metrics.CorpusSynced(nil)
	return nil
}

// Replace compiles c and swaps it in. Malformed patterns are logged and skipped.
func (s *CorpusStore) Replace(c *domain.Corpus) {
	table, errs := CompileCorpus(c)
	for _, err := range errs {
		s.logger.Warn("skipping corpus entry", "error", err)
	}

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()

	var groups []any
	if c != nil {
		for _, g := range c.Groups {
			groups = append(groups, g.Label, g.Activated)
		}
	}
	s.logger.Info("corpus updated",
		"name", table.Name,
		"entries", table.Len(),
		"skipped", len(errs),
		slog.Group("groups", groups...),
	)
}

func (s *CorpusStore) Current() *AnswerTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func (s *CorpusStore) StartPeriodicSync(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Sync(ctx); err != nil {
					s.logger.Error("periodic corpus sync failed", "error", err)
				}
			}
		}
	}()
}
