package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KnowledgeSourceRepository handles persistence of knowledge sources.
type KnowledgeSourceRepository struct {
	db dbtx
}

func NewKnowledgeSourceRepository(pool *pgxpool.Pool) *KnowledgeSourceRepository {
	return &KnowledgeSourceRepository{db: pool}
}

func (r *KnowledgeSourceRepository) Create(ctx context.Context, s *domain.KnowledgeSource) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_sources (id, agent_id, name, type, url, content, status, error, chunk_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.AgentID, s.Name, s.Type, nullableString(s.URL), s.Content, s.Status, nullableString(s.Error), s.ChunkCount, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *KnowledgeSourceRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error) {
	var s domain.KnowledgeSource
	var url, errMsg *string
	err := r.db.QueryRow(ctx,
		`SELECT id, agent_id, name, type, url, content, status, error, chunk_count, created_at, updated_at
		 FROM knowledge_sources WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.AgentID, &s.Name, &s.Type, &url, &s.Content, &s.Status, &errMsg, &s.ChunkCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	if url != nil {
		s.URL = *url
	}
	if errMsg != nil {
		s.Error = *errMsg
	}
	return &s, nil
}

func (r *KnowledgeSourceRepository) ListByAgent(ctx context.Context, agentID string) ([]*domain.KnowledgeSource, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, agent_id, name, type, url, content, status, error, chunk_count, created_at, updated_at
		 FROM knowledge_sources WHERE agent_id = $1 ORDER BY created_at ASC`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSourceRows(rows)
}

// ListPending returns sources awaiting ingestion, oldest first.
func (r *KnowledgeSourceRepository) ListPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, agent_id, name, type, url, content, status, error, chunk_count, created_at, updated_at
		 FROM knowledge_sources WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		domain.SourceStatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSourceRows(rows)
}

func (r *KnowledgeSourceRepository) UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (r *KnowledgeSourceRepository) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources SET status = $1, error = NULL, chunk_count = $2, updated_at = $3 WHERE id = $4`,
		domain.SourceStatusCompleted, chunkCount, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (r *KnowledgeSourceRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM knowledge_sources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func scanSourceRows(rows pgx.Rows) ([]*domain.KnowledgeSource, error) {
	var results []*domain.KnowledgeSource
	for rows.Next() {
		var s domain.KnowledgeSource
		var url, errMsg *string
		if err := rows.Scan(&s.ID, &s.AgentID, &s.Name, &s.Type, &url, &s.Content, &s.Status, &errMsg, &s.ChunkCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if url != nil {
			s.URL = *url
		}
		if errMsg != nil {
			s.Error = *errMsg
		}
		results = append(results, &s)
	}
	return results, rows.Err()
}
