package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SourceChunkRepository handles persistence and vector search of source chunks.
type SourceChunkRepository struct {
	pool *pgxpool.Pool
}

func NewSourceChunkRepository(pool *pgxpool.Pool) *SourceChunkRepository {
	return &SourceChunkRepository{pool: pool}
}

// ReplaceForSource deletes the existing chunks of a source and inserts the new
// set in a single transaction, so readers never observe a partial chunk set.
func (r *SourceChunkRepository) ReplaceForSource(ctx context.Context, sourceID string, chunks []domain.SourceChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM source_chunks WHERE source_id = $1`, sourceID); err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO source_chunks
				(id, source_id, agent_id, chunk_index, content, token_estimate, embedding, source_name, source_type, source_url, total_chunks, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			c.ID,
			c.SourceID,
			c.AgentID,
			c.ChunkIndex,
			c.Content,
			c.TokenEstimate,
			pgvector.NewVector(c.Embedding),
			c.SourceName,
			c.SourceType,
			nullableString(c.SourceURL),
			c.TotalChunks,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SearchSimilar returns chunks from the given sources whose cosine similarity
// to the query embedding meets the threshold, best matches first.
func (r *SourceChunkRepository) SearchSimilar(ctx context.Context, embedding []float32, sourceIDs []string, threshold float64, limit int) ([]*domain.ChunkMatch, error) {
	if limit <= 0 {
		limit = 3
	}

	rows, err := r.pool.Query(ctx,
		`SELECT content, source_name, 1 - (embedding <=> $1) AS similarity
		 FROM source_chunks
		 WHERE source_id = ANY($2) AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(embedding), sourceIDs, threshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*domain.ChunkMatch
	for rows.Next() {
		var m domain.ChunkMatch
		if err := rows.Scan(&m.Content, &m.SourceName, &m.Similarity); err != nil {
			return nil, err
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

// ListBySources returns chunks from the given sources in ingestion order,
// used as keyword-match candidates when vector search yields nothing.
func (r *SourceChunkRepository) ListBySources(ctx context.Context, sourceIDs []string, limit int) ([]*domain.SourceChunk, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, source_id, agent_id, chunk_index, content, token_estimate, source_name, source_type, source_url, total_chunks, created_at
		 FROM source_chunks
		 WHERE source_id = ANY($1)
		 ORDER BY source_id, chunk_index
		 LIMIT $2`,
		sourceIDs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.SourceChunk
	for rows.Next() {
		var c domain.SourceChunk
		var sourceURL *string
		if err := rows.Scan(&c.ID, &c.SourceID, &c.AgentID, &c.ChunkIndex, &c.Content, &c.TokenEstimate, &c.SourceName, &c.SourceType, &sourceURL, &c.TotalChunks, &c.CreatedAt); err != nil {
			return nil, err
		}
		if sourceURL != nil {
			c.SourceURL = *sourceURL
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// CountByAgent returns the number of stored chunks for an agent.
func (r *SourceChunkRepository) CountByAgent(ctx context.Context, agentID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM source_chunks WHERE agent_id = $1`, agentID).Scan(&count)
	return count, err
}
