package repository

import (
	"context"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/cloo-solutions/agentchat/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles persistence of conversation messages.
type MessageRepository struct {
	db dbtx
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, model, prompt_tokens, completion_tokens, total_tokens, cost, used_context, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.ConversationID, m.Role, m.Content, nullableString(m.Model), m.PromptTokens, m.CompletionTokens, m.TotalTokens, m.Cost, m.UsedContext, m.CreatedAt,
	)
	return err
}

// ListRecent returns the last messages of a conversation in chronological
// order, excluding one message by ID so the turn in flight is not replayed
// as history.
func (r *MessageRepository) ListRecent(ctx context.Context, conversationID string, limit int, excludeMessageID string) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, role, content, model, prompt_tokens, completion_tokens, total_tokens, cost, used_context, created_at
		 FROM (
			SELECT id, conversation_id, role, content, model, prompt_tokens, completion_tokens, total_tokens, cost, used_context, created_at
			FROM messages
			WHERE conversation_id = $1 AND id != $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		conversationID, excludeMessageID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

func (r *MessageRepository) ListByConversationWithCursor(ctx context.Context, conversationID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Message], error) {
	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, conversation_id, role, content, model, prompt_tokens, completion_tokens, total_tokens, cost, used_context, created_at
			 FROM messages
			 WHERE conversation_id = $1 AND (created_at, id) > ($2, $3)
			 ORDER BY created_at ASC, id ASC
			 LIMIT $4`,
			conversationID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, conversation_id, role, content, model, prompt_tokens, completion_tokens, total_tokens, cost, used_context, created_at
			 FROM messages
			 WHERE conversation_id = $1
			 ORDER BY created_at ASC, id ASC
			 LIMIT $2`,
			conversationID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanMessageRows(rows)
	if err != nil {
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

	return &pagination.PageResult[*domain.Message]{
		Items:   items,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}

func scanMessageRows(rows pgx.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		var m domain.Message
		var model *string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &model, &m.PromptTokens, &m.CompletionTokens, &m.TotalTokens, &m.Cost, &m.UsedContext, &m.CreatedAt); err != nil {
			return nil, err
		}
		if model != nil {
			m.Model = *model
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
