package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AgentRepository handles persistence of agent configurations.
type AgentRepository struct {
	db dbtx
}

func NewAgentRepository(pool *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{db: pool}
}

func (r *AgentRepository) Create(ctx context.Context, a *domain.Agent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO agents (id, name, tone, custom_instructions, model, temperature, max_tokens, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Name, nullableString(string(a.Tone)), nullableString(a.CustomInstructions), a.Model, a.Temperature, a.MaxTokens, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *AgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	var a domain.Agent
	var tone, instructions *string
	err := r.db.QueryRow(ctx,
		`SELECT id, name, tone, custom_instructions, model, temperature, max_tokens, created_at, updated_at
		 FROM agents WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Name, &tone, &instructions, &a.Model, &a.Temperature, &a.MaxTokens, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAgentNotFound
		}
		return nil, err
	}
	if tone != nil {
		a.Tone = domain.AgentTone(*tone)
	}
	if instructions != nil {
		a.CustomInstructions = *instructions
	}
	return &a, nil
}

func (r *AgentRepository) List(ctx context.Context) ([]*domain.Agent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, tone, custom_instructions, model, temperature, max_tokens, created_at, updated_at
		 FROM agents ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		var a domain.Agent
		var tone, instructions *string
		if err := rows.Scan(&a.ID, &a.Name, &tone, &instructions, &a.Model, &a.Temperature, &a.MaxTokens, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if tone != nil {
			a.Tone = domain.AgentTone(*tone)
		}
		if instructions != nil {
			a.CustomInstructions = *instructions
		}
		agents = append(agents, &a)
	}
	return agents, rows.Err()
}

func (r *AgentRepository) Update(ctx context.Context, a *domain.Agent) error {
	a.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE agents SET name = $1, tone = $2, custom_instructions = $3, model = $4, temperature = $5, max_tokens = $6, updated_at = $7
		 WHERE id = $8`,
		a.Name, nullableString(string(a.Tone)), nullableString(a.CustomInstructions), a.Model, a.Temperature, a.MaxTokens, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}
