package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	db_models "repochat-backend/internal/models"
	"repochat-backend/internal/store"
)

// --- Chat Session Methods ---

const createChatSession = `-- name: CreateChatSession :one
INSERT INTO chat_sessions (id, organization_id, name)
VALUES ($1, $2, $3)
RETURNING id, organization_id, name, created_at, updated_at;
`

func (s *PostgresStore) CreateChatSession(ctx context.Context, arg store.CreateChatSessionParams) (*db_models.ChatSession, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRow(ctx, createChatSession, id, arg.OrganizationID, arg.Name)
	var sess db_models.ChatSession
	err := row.Scan(
		&sess.ID,
		&sess.OrganizationID,
		&sess.Name,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning chat session: %w", err)
	}
	return &sess, nil
}

const getChatSessionByID = `-- name: GetChatSessionByID :one
SELECT id, organization_id, name, created_at, updated_at
FROM chat_sessions
WHERE id = $1 AND organization_id = $2;
`

func (s *PostgresStore) GetChatSessionByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.ChatSession, error) {
	row := s.db.QueryRow(ctx, getChatSessionByID, id, orgID)
	var sess db_models.ChatSession
	err := row.Scan(
		&sess.ID,
		&sess.OrganizationID,
		&sess.Name,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning chat session: %w", err)
	}
	return &sess, nil
}

const listChatSessions = `-- name: ListChatSessions :many
SELECT id, organization_id, name, created_at, updated_at
FROM chat_sessions
WHERE organization_id = $1
ORDER BY updated_at DESC;
`

func (s *PostgresStore) ListChatSessions(ctx context.Context, orgID uuid.UUID) ([]db_models.ChatSession, error) {
	rows, err := s.db.Query(ctx, listChatSessions, orgID)
	if err != nil {
		return nil, fmt.Errorf("error querying chat sessions: %w", err)
	}
	defer rows.Close()

	var items []db_models.ChatSession
	for rows.Next() {
		var sess db_models.ChatSession
		if err := rows.Scan(
			&sess.ID,
			&sess.OrganizationID,
			&sess.Name,
			&sess.CreatedAt,
			&sess.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning chat session row: %w", err)
		}
		items = append(items, sess)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat session rows: %w", err)
	}

	return items, nil
}

const renameChatSession = `-- name: RenameChatSession :one
UPDATE chat_sessions
SET name = $1, updated_at = NOW()
WHERE id = $2 AND organization_id = $3
RETURNING id, organization_id, name, created_at, updated_at;
`

func (s *PostgresStore) RenameChatSession(ctx context.Context, id, orgID uuid.UUID, name string) (*db_models.ChatSession, error) {
	row := s.db.QueryRow(ctx, renameChatSession, name, id, orgID)
	var sess db_models.ChatSession
	err := row.Scan(
		&sess.ID,
		&sess.OrganizationID,
		&sess.Name,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning renamed chat session: %w", err)
	}
	return &sess, nil
}

const deleteChatSession = `-- name: DeleteChatSession :exec
DELETE FROM chat_sessions
WHERE id = $1 AND organization_id = $2;
`

// DeleteChatSession removes a session; messages go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteChatSession(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteChatSession, id, orgID)
	if err != nil {
		return fmt.Errorf("error executing delete chat session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- Message Methods ---

const createMessage = `-- name: CreateMessage :one
INSERT INTO messages (id, session_id, role, content, token_count)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, session_id, role, content, token_count, created_at;
`

func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*db_models.Message, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRow(ctx, createMessage, id, arg.SessionID, arg.Role, arg.Content, arg.TokenCount)
	var msg db_models.Message
	err := row.Scan(
		&msg.ID,
		&msg.SessionID,
		&msg.Role,
		&msg.Content,
		&msg.TokenCount,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning message: %w", err)
	}

	// Touch the parent session so list ordering reflects activity.
	const touchSession = `UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1;`
	if _, err := s.db.Exec(ctx, touchSession, arg.SessionID); err != nil {
		return nil, fmt.Errorf("error touching chat session: %w", err)
	}

	return &msg, nil
}

const listMessagesBySession = `-- name: ListMessagesBySession :many
SELECT id, session_id, role, content, token_count, created_at
FROM messages
WHERE session_id = $1
ORDER BY created_at ASC;
`

func (s *PostgresStore) ListMessagesBySession(ctx context.Context, sessionID uuid.UUID) ([]db_models.Message, error) {
	rows, err := s.db.Query(ctx, listMessagesBySession, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var items []db_models.Message
	for rows.Next() {
		var msg db_models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Role,
			&msg.Content,
			&msg.TokenCount,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		items = append(items, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return items, nil
}
