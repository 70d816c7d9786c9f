package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
)

// Store is the persistence sink for applied batches. It decouples the
// service from a specific storage implementation.
type Store interface {
	PersistBatch(ctx context.Context, batch schemas.IngestBatch) error
}

// Service consumes ingestion batches from a channel and applies them through
// the adapter, optionally persisting each applied batch. Retrying failed
// batches is the producer's responsibility; the service reports and moves on.
type Service struct {
	adapter *Adapter
	store   Store // nil disables persistence
	logger  *zap.Logger
	workers int
	wg      sync.WaitGroup
}

// NewService creates a batch ingestion service. workers <= 0 falls back to a
// single worker: writers are serialized by the graph lock anyway, extra
// workers only help when persistence dominates.
func NewService(adapter *Adapter, store Store, workers int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		adapter: adapter,
		store:   store,
		logger:  logger.Named("ingest_service"),
		workers: workers,
	}
}

// Start launches the worker pool consuming from batches. The pool drains the
// channel and exits when it is closed, or stops early on context cancel.
func (s *Service) Start(ctx context.Context, batches <-chan schemas.IngestBatch) {
	s.logger.Info("Starting ingestion workers", zap.Int("workers", s.workers))
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.run(ctx, i+1, batches)
	}
}

// Stop waits for all workers to finish draining.
func (s *Service) Stop() {
	s.wg.Wait()
	s.logger.Info("Ingestion workers stopped")
}

func (s *Service) run(ctx context.Context, workerID int, batches <-chan schemas.IngestBatch) {
	defer s.wg.Done()
	logger := s.logger.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopping on context cancel")
			return
		case batch, ok := <-batches:
			if !ok {
				logger.Debug("Batch channel closed, worker shutting down")
				return
			}
			s.process(ctx, batch, logger)
		}
	}
}

func (s *Service) process(ctx context.Context, batch schemas.IngestBatch, logger *zap.Logger) {
	result, err := s.adapter.ApplyBatch(batch)
	if err != nil {
		logger.Error("Batch rejected", zap.Error(err))
		return
	}
	for _, rejected := range result.RejectedRelations {
		logger.Warn("Relation rejected",
			zap.String("relation_id", rejected.Relation.ID),
			zap.String("reason", rejected.Reason))
	}

	if s.store == nil {
		return
	}
	if err := s.store.PersistBatch(ctx, batch); err != nil {
		logger.Error("Failed to persist batch", zap.Error(err))
	}
}
