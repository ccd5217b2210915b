package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/agentchat/internal/domain"
)

const (
	// PendingBatchSize caps how many sources one poll cycle picks up
	PendingBatchSize = 10
)

// PendingSourceRepository lists knowledge sources awaiting ingestion
type PendingSourceRepository interface {
	ListPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error)
}

// SourceIngestor runs the ingestion pipeline for one source
type SourceIngestor interface {
	Ingest(ctx context.Context, sourceID string) error
}

// IngestionWorker picks up pending knowledge sources and runs them through
// the ingestion pipeline. The pipeline itself records per-source failure
// state, so a failed source is not retried here.
type IngestionWorker struct {
	sources  PendingSourceRepository
	ingestor SourceIngestor
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(sources PendingSourceRepository, ingestor SourceIngestor) *IngestionWorker {
	return &IngestionWorker{
		sources:  sources,
		ingestor: ingestor,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestionWorker) ProcessJobs(ctx context.Context) error {
	pending, err := w.sources.ListPending(ctx, PendingBatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending sources: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("Processing %d pending knowledge sources", len(pending))

	for _, source := range pending {
		log.Printf("Ingesting source %s (%s)", source.ID, source.Name)
		if err := w.ingestor.Ingest(ctx, source.ID); err != nil {
			log.Printf("Error ingesting source %s: %v", source.ID, err)
			continue
		}
		log.Printf("Source %s ingested successfully", source.ID)
	}

	return nil
}
