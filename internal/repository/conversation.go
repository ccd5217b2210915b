package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/cloo-solutions/agentchat/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository handles persistence of chat conversations.
type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations (id, agent_id, session_id, status, message_count, last_message_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.AgentID, nullableString(c.SessionID), c.Status, c.MessageCount, c.LastMessageAt, c.CreatedAt,
	)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	var sessionID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, agent_id, session_id, status, message_count, last_message_at, created_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.AgentID, &sessionID, &c.Status, &c.MessageCount, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	if sessionID != nil {
		c.SessionID = *sessionID
	}
	return &c, nil
}

// RecordMessages bumps the message count and last-message timestamp after a
// completed chat turn.
func (r *ConversationRepository) RecordMessages(ctx context.Context, id string, count int, lastMessageAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversations SET message_count = message_count + $1, last_message_at = $2 WHERE id = $3`,
		count, lastMessageAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) ListByAgentWithCursor(ctx context.Context, agentID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Conversation], error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, agent_id, session_id, status, message_count, last_message_at, created_at
			 FROM conversations
			 WHERE agent_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			agentID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, agent_id, session_id, status, message_count, last_message_at, created_at
			 FROM conversations
			 WHERE agent_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			agentID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var sessionID *string
		if err := rows.Scan(&c.ID, &c.AgentID, &sessionID, &c.Status, &c.MessageCount, &c.LastMessageAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		if sessionID != nil {
			c.SessionID = *sessionID
		}
		items = append(items, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &pagination.PageResult[*domain.Conversation]{
		Items:   items,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}
