package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/cloo-solutions/agentchat/internal/telemetry"
	"github.com/google/uuid"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// IngestionSourceRepository defines the repository interface for source state during ingestion
type IngestionSourceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error)
	UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMsg string) error
	MarkCompleted(ctx context.Context, id string, chunkCount int) error
}

// IngestionChunkRepository defines the repository interface for chunk persistence
type IngestionChunkRepository interface {
	ReplaceForSource(ctx context.Context, sourceID string, chunks []domain.SourceChunk) error
}

// SourceArchiver stores the raw document of a source in object storage
type SourceArchiver interface {
	ArchiveSource(ctx context.Context, source *domain.KnowledgeSource) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestionService turns a knowledge source's raw text into embedded chunks.
// A chunk whose embedding call fails is logged and skipped; the run fails only
// when no chunk survives.
type IngestionService struct {
	sources  IngestionSourceRepository
	chunks   IngestionChunkRepository
	embedder EmbeddingClient
	archiver SourceArchiver
	chunkCfg ChunkConfig
	uuidGen  UUIDGenerator
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(sources IngestionSourceRepository, chunks IngestionChunkRepository, embedder EmbeddingClient) *IngestionService {
	return &IngestionService{
		sources:  sources,
		chunks:   chunks,
		embedder: embedder,
		chunkCfg: DefaultChunkConfig(),
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// WithArchiver attaches optional raw-document archival to object storage.
func (s *IngestionService) WithArchiver(archiver SourceArchiver) *IngestionService {
	s.archiver = archiver
	return s
}

// WithChunkConfig overrides the chunking configuration.
func (s *IngestionService) WithChunkConfig(cfg ChunkConfig) *IngestionService {
	s.chunkCfg = cfg
	return s
}

// WithUUIDGenerator overrides UUID generation (for testing).
func (s *IngestionService) WithUUIDGenerator(gen UUIDGenerator) *IngestionService {
	s.uuidGen = gen
	return s
}

// Ingest runs the full ingestion pipeline for one knowledge source: chunk,
// embed, and replace the source's stored chunks.
func (s *IngestionService) Ingest(ctx context.Context, sourceID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		SourceID:  sourceID,
		Operation: "ingest",
	})
	defer span.End()

	source, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return err
	}

	// Mark the source failed so the pending queue does not re-claim it
	// every poll cycle.
	if strings.TrimSpace(source.Content) == "" {
		if err := s.sources.UpdateStatus(ctx, sourceID, domain.SourceStatusFailed, domain.ErrEmptySourceContent.Message); err != nil {
			log.Printf("ingestion: marking empty source %s as failed: %v", sourceID, err)
		}
		return domain.ErrEmptySourceContent
	}

	if err := s.sources.UpdateStatus(ctx, sourceID, domain.SourceStatusProcessing, ""); err != nil {
		return domain.NewStorageError("failed to mark source as processing", err)
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveSource(ctx, source); err != nil {
			log.Printf("ingestion: archiving source %s failed (continuing): %v", sourceID, err)
		}
	}

	texts := chunkText(source.Content, s.chunkCfg)

	now := time.Now().UTC()
	entries := make([]domain.SourceChunk, 0, len(texts))
	var failed int
	var lastErr error

	for _, text := range texts {
		embedding, err := s.embedder.GenerateEmbedding(ctx, text)
		if err != nil {
			failed++
			lastErr = err
			log.Printf("ingestion: embedding chunk for source %s failed, skipping: %v", sourceID, err)
			continue
		}

		entries = append(entries, domain.SourceChunk{
			ID:            s.uuidGen.NewString(),
			SourceID:      source.ID,
			AgentID:       source.AgentID,
			ChunkIndex:    len(entries),
			Content:       text,
			TokenEstimate: estimateTokens(text),
			Embedding:     embedding,
			SourceName:    source.Name,
			SourceType:    source.Type,
			SourceURL:     source.URL,
			CreatedAt:     now,
		})
	}

	if len(entries) == 0 {
		msg := fmt.Sprintf("all %d chunks failed to embed", failed)
		if err := s.sources.UpdateStatus(ctx, sourceID, domain.SourceStatusFailed, msg); err != nil {
			log.Printf("ingestion: failed to mark source %s as failed: %v", sourceID, err)
		}
		return domain.NewProviderError(msg, lastErr)
	}

	if failed > 0 {
		// Partial failure is tolerated: the surviving chunks are stored.
		log.Printf("ingestion: source %s embedded with %d/%d chunks skipped", sourceID, failed, len(texts))
	}

	for i := range entries {
		entries[i].TotalChunks = len(entries)
	}

	if err := s.chunks.ReplaceForSource(ctx, sourceID, entries); err != nil {
		if statusErr := s.sources.UpdateStatus(ctx, sourceID, domain.SourceStatusFailed, "failed to store chunks"); statusErr != nil {
			log.Printf("ingestion: failed to mark source %s as failed: %v", sourceID, statusErr)
		}
		return domain.NewStorageError("failed to store chunks", err)
	}

	if err := s.sources.MarkCompleted(ctx, sourceID, len(entries)); err != nil {
		return domain.NewStorageError("failed to mark source as completed", err)
	}

	log.Printf("ingestion: source %s completed with %d chunks", sourceID, len(entries))
	return nil
}
