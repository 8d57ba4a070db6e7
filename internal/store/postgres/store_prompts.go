package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	db_models "repochat-backend/internal/models"
	"repochat-backend/internal/store"
)

// --- System Prompt Methods ---

const clearDefaultPrompts = `-- name: ClearDefaultPrompts :exec
UPDATE system_prompts
SET is_default = FALSE, updated_at = NOW()
WHERE organization_id = $1 AND is_default = TRUE;
`

const createSystemPrompt = `-- name: CreateSystemPrompt :one
INSERT INTO system_prompts (id, organization_id, name, content, is_default)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, organization_id, name, content, is_default, created_at, updated_at;
`

// CreateSystemPrompt inserts a prompt. When the new prompt is the default,
// clearing the previous default and the insert happen in one transaction so
// the single-default invariant holds even across concurrent writes.
func (s *PostgresStore) CreateSystemPrompt(ctx context.Context, arg store.CreateSystemPromptParams) (*db_models.SystemPrompt, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if arg.IsDefault {
		if _, err := tx.Exec(ctx, clearDefaultPrompts, arg.OrganizationID); err != nil {
			return nil, fmt.Errorf("error clearing default prompts: %w", err)
		}
	}

	row := tx.QueryRow(ctx, createSystemPrompt, id, arg.OrganizationID, arg.Name, arg.Content, arg.IsDefault)
	var prompt db_models.SystemPrompt
	err = row.Scan(
		&prompt.ID,
		&prompt.OrganizationID,
		&prompt.Name,
		&prompt.Content,
		&prompt.IsDefault,
		&prompt.CreatedAt,
		&prompt.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning system prompt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing system prompt create: %w", err)
	}
	return &prompt, nil
}

const getSystemPromptByID = `-- name: GetSystemPromptByID :one
SELECT id, organization_id, name, content, is_default, created_at, updated_at
FROM system_prompts
WHERE id = $1 AND organization_id = $2;
`

func (s *PostgresStore) GetSystemPromptByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.SystemPrompt, error) {
	row := s.db.QueryRow(ctx, getSystemPromptByID, id, orgID)
	var prompt db_models.SystemPrompt
	err := row.Scan(
		&prompt.ID,
		&prompt.OrganizationID,
		&prompt.Name,
		&prompt.Content,
		&prompt.IsDefault,
		&prompt.CreatedAt,
		&prompt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning system prompt: %w", err)
	}
	return &prompt, nil
}

const getDefaultSystemPrompt = `-- name: GetDefaultSystemPrompt :one
SELECT id, organization_id, name, content, is_default, created_at, updated_at
FROM system_prompts
WHERE organization_id = $1 AND is_default = TRUE;
`

func (s *PostgresStore) GetDefaultSystemPrompt(ctx context.Context, orgID uuid.UUID) (*db_models.SystemPrompt, error) {
	row := s.db.QueryRow(ctx, getDefaultSystemPrompt, orgID)
	var prompt db_models.SystemPrompt
	err := row.Scan(
		&prompt.ID,
		&prompt.OrganizationID,
		&prompt.Name,
		&prompt.Content,
		&prompt.IsDefault,
		&prompt.CreatedAt,
		&prompt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning default system prompt: %w", err)
	}
	return &prompt, nil
}

const listSystemPrompts = `-- name: ListSystemPrompts :many
SELECT id, organization_id, name, content, is_default, created_at, updated_at
FROM system_prompts
WHERE organization_id = $1
ORDER BY created_at DESC;
`

func (s *PostgresStore) ListSystemPrompts(ctx context.Context, orgID uuid.UUID) ([]db_models.SystemPrompt, error) {
	rows, err := s.db.Query(ctx, listSystemPrompts, orgID)
	if err != nil {
		return nil, fmt.Errorf("error querying system prompts: %w", err)
	}
	defer rows.Close()

	var items []db_models.SystemPrompt
	for rows.Next() {
		var prompt db_models.SystemPrompt
		if err := rows.Scan(
			&prompt.ID,
			&prompt.OrganizationID,
			&prompt.Name,
			&prompt.Content,
			&prompt.IsDefault,
			&prompt.CreatedAt,
			&prompt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning system prompt row: %w", err)
		}
		items = append(items, prompt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating system prompt rows: %w", err)
	}

	return items, nil
}

// UpdateSystemPrompt builds the query dynamically based on which fields are
// provided. Setting is_default to true clears other defaults in the same
// transaction.
func (s *PostgresStore) UpdateSystemPrompt(ctx context.Context, arg store.UpdateSystemPromptParams) (*db_models.SystemPrompt, error) {
	setClauses := []string{}
	args := []interface{}{}
	argID := 1

	if arg.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argID))
		args = append(args, *arg.Name)
		argID++
	}
	if arg.Content != nil {
		setClauses = append(setClauses, fmt.Sprintf("content = $%d", argID))
		args = append(args, *arg.Content)
		argID++
	}
	if arg.IsDefault != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_default = $%d", argID))
		args = append(args, *arg.IsDefault)
		argID++
	}

	if len(setClauses) == 0 {
		return s.GetSystemPromptByID(ctx, arg.ID, arg.OrganizationID)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++

	args = append(args, arg.ID)
	args = append(args, arg.OrganizationID)

	query := fmt.Sprintf(`-- name: UpdateSystemPrompt :one
		UPDATE system_prompts
		SET %s
		WHERE id = $%d AND organization_id = $%d
		RETURNING id, organization_id, name, content, is_default, created_at, updated_at;`,
		strings.Join(setClauses, ", "),
		argID,
		argID+1,
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if arg.IsDefault != nil && *arg.IsDefault {
		if _, err := tx.Exec(ctx, clearDefaultPrompts, arg.OrganizationID); err != nil {
			return nil, fmt.Errorf("error clearing default prompts: %w", err)
		}
	}

	row := tx.QueryRow(ctx, query, args...)
	var prompt db_models.SystemPrompt
	err = row.Scan(
		&prompt.ID,
		&prompt.OrganizationID,
		&prompt.Name,
		&prompt.Content,
		&prompt.IsDefault,
		&prompt.CreatedAt,
		&prompt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning updated system prompt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing system prompt update: %w", err)
	}
	return &prompt, nil
}

const deleteSystemPrompt = `-- name: DeleteSystemPrompt :exec
DELETE FROM system_prompts
WHERE id = $1 AND organization_id = $2;
`

func (s *PostgresStore) DeleteSystemPrompt(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteSystemPrompt, id, orgID)
	if err != nil {
		return fmt.Errorf("error executing delete system prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
