package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	db_models "repochat-backend/internal/models"
	"repochat-backend/internal/store"
)

// --- GitHub Credential Methods ---

const createGithubCredential = `-- name: CreateGithubCredential :one
INSERT INTO github_credentials (id, organization_id, username, encrypted_token)
VALUES ($1, $2, $3, $4)
RETURNING id, organization_id, username, encrypted_token, created_at, updated_at;
`

func (s *PostgresStore) CreateGithubCredential(ctx context.Context, arg store.CreateGithubCredentialParams) (*db_models.GithubCredential, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRow(ctx, createGithubCredential, id, arg.OrganizationID, arg.Username, arg.EncryptedToken)
	var cred db_models.GithubCredential
	err := row.Scan(
		&cred.ID,
		&cred.OrganizationID,
		&cred.Username,
		&cred.EncryptedToken,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateGithubCredential: Failed insert for OrgID %s: %v", arg.OrganizationID, err)
		return nil, fmt.Errorf("database error creating github credential: %w", err)
	}

	log.Printf("[PostgresStore] CreateGithubCredential: Successfully inserted CredID %s for OrgID %s", cred.ID, cred.OrganizationID)
	return &cred, nil
}

const getGithubCredentialByID = `-- name: GetGithubCredentialByID :one
SELECT id, organization_id, username, encrypted_token, created_at, updated_at
FROM github_credentials
WHERE id = $1 AND organization_id = $2;
`

func (s *PostgresStore) GetGithubCredentialByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubCredential, error) {
	row := s.db.QueryRow(ctx, getGithubCredentialByID, id, orgID)
	var cred db_models.GithubCredential
	err := row.Scan(
		&cred.ID,
		&cred.OrganizationID,
		&cred.Username,
		&cred.EncryptedToken,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning github credential: %w", err)
	}
	return &cred, nil
}

const listGithubCredentials = `-- name: ListGithubCredentials :many
SELECT id, organization_id, username, encrypted_token, created_at, updated_at
FROM github_credentials
WHERE organization_id = $1
ORDER BY created_at DESC;
`

func (s *PostgresStore) ListGithubCredentials(ctx context.Context, orgID uuid.UUID) ([]db_models.GithubCredential, error) {
	rows, err := s.db.Query(ctx, listGithubCredentials, orgID)
	if err != nil {
		return nil, fmt.Errorf("error querying github credentials: %w", err)
	}
	defer rows.Close()

	var items []db_models.GithubCredential
	for rows.Next() {
		var cred db_models.GithubCredential
		if err := rows.Scan(
			&cred.ID,
			&cred.OrganizationID,
			&cred.Username,
			&cred.EncryptedToken,
			&cred.CreatedAt,
			&cred.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning github credential row: %w", err)
		}
		items = append(items, cred)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating github credential rows: %w", err)
	}

	return items, nil
}

const deleteGithubCredential = `-- name: DeleteGithubCredential :exec
DELETE FROM github_credentials
WHERE id = $1 AND organization_id = $2;
`

// DeleteGithubCredential removes a credential; dependent repositories and
// their file changes go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteGithubCredential(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteGithubCredential, id, orgID)
	if err != nil {
		return fmt.Errorf("error executing delete github credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- GitHub Repository Methods ---

const createGithubRepository = `-- name: CreateGithubRepository :one
INSERT INTO github_repositories (id, organization_id, credential_id, owner, repo, default_branch)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, organization_id, credential_id, owner, repo, default_branch, last_analyzed, summary, created_at, updated_at;
`

func (s *PostgresStore) CreateGithubRepository(ctx context.Context, arg store.CreateGithubRepositoryParams) (*db_models.GithubRepository, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRow(ctx, createGithubRepository,
		id,
		arg.OrganizationID,
		arg.CredentialID,
		arg.Owner,
		arg.Repo,
		arg.DefaultBranch,
	)
	repo, err := scanGithubRepository(row)
	if err != nil {
		return nil, fmt.Errorf("error scanning github repository: %w", err)
	}
	return repo, nil
}

const getGithubRepositoryByID = `-- name: GetGithubRepositoryByID :one
SELECT id, organization_id, credential_id, owner, repo, default_branch, last_analyzed, summary, created_at, updated_at
FROM github_repositories
WHERE id = $1 AND organization_id = $2;
`

func (s *PostgresStore) GetGithubRepositoryByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubRepository, error) {
	row := s.db.QueryRow(ctx, getGithubRepositoryByID, id, orgID)
	repo, err := scanGithubRepository(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning github repository: %w", err)
	}
	return repo, nil
}

const listGithubRepositories = `-- name: ListGithubRepositories :many
SELECT id, organization_id, credential_id, owner, repo, default_branch, last_analyzed, summary, created_at, updated_at
FROM github_repositories
WHERE organization_id = $1
ORDER BY created_at DESC;
`

func (s *PostgresStore) ListGithubRepositories(ctx context.Context, orgID uuid.UUID) ([]db_models.GithubRepository, error) {
	rows, err := s.db.Query(ctx, listGithubRepositories, orgID)
	if err != nil {
		return nil, fmt.Errorf("error querying github repositories: %w", err)
	}
	defer rows.Close()

	var items []db_models.GithubRepository
	for rows.Next() {
		repo, err := scanGithubRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning github repository row: %w", err)
		}
		items = append(items, *repo)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating github repository rows: %w", err)
	}

	return items, nil
}

const deleteGithubRepository = `-- name: DeleteGithubRepository :exec
DELETE FROM github_repositories
WHERE id = $1 AND organization_id = $2;
`

// DeleteGithubRepository removes a repository; its file changes go with it
// via ON DELETE CASCADE.
func (s *PostgresStore) DeleteGithubRepository(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteGithubRepository, id, orgID)
	if err != nil {
		return fmt.Errorf("error executing delete github repository: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const updateRepositoryAnalysis = `-- name: UpdateRepositoryAnalysis :one
UPDATE github_repositories
SET summary = $1, last_analyzed = $2, updated_at = NOW()
WHERE id = $3 AND organization_id = $4
RETURNING id, organization_id, credential_id, owner, repo, default_branch, last_analyzed, summary, created_at, updated_at;
`

func (s *PostgresStore) UpdateRepositoryAnalysis(ctx context.Context, id, orgID uuid.UUID, summary json.RawMessage, analyzedAt time.Time) (*db_models.GithubRepository, error) {
	row := s.db.QueryRow(ctx, updateRepositoryAnalysis, summary, analyzedAt, id, orgID)
	repo, err := scanGithubRepository(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning analyzed github repository: %w", err)
	}
	return repo, nil
}

// scanGithubRepository scans one repository row from either a Row or Rows.
func scanGithubRepository(row pgx.Row) (*db_models.GithubRepository, error) {
	var repo db_models.GithubRepository
	err := row.Scan(
		&repo.ID,
		&repo.OrganizationID,
		&repo.CredentialID,
		&repo.Owner,
		&repo.Repo,
		&repo.DefaultBranch,
		&repo.LastAnalyzed,
		&repo.Summary,
		&repo.CreatedAt,
		&repo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// --- GitHub File Change Methods ---

const createGithubFileChange = `-- name: CreateGithubFileChange :one
INSERT INTO github_file_changes (id, repository_id, path, content, commit_message, status)
VALUES ($1, $2, $3, $4, $5, 'pending')
RETURNING id, repository_id, path, content, commit_message, status, commit_url, created_at, updated_at;
`

// CreateGithubFileChange inserts a proposed change. Status always starts as
// pending regardless of what the caller might ask for.
func (s *PostgresStore) CreateGithubFileChange(ctx context.Context, arg store.CreateGithubFileChangeParams) (*db_models.GithubFileChange, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRow(ctx, createGithubFileChange,
		id,
		arg.RepositoryID,
		arg.Path,
		arg.Content,
		arg.CommitMessage,
	)
	fc, err := scanGithubFileChange(row)
	if err != nil {
		return nil, fmt.Errorf("error scanning github file change: %w", err)
	}
	return fc, nil
}

// File changes are scoped to the organization through their repository.
const getGithubFileChangeByID = `-- name: GetGithubFileChangeByID :one
SELECT fc.id, fc.repository_id, fc.path, fc.content, fc.commit_message, fc.status, fc.commit_url, fc.created_at, fc.updated_at
FROM github_file_changes fc
JOIN github_repositories r ON r.id = fc.repository_id
WHERE fc.id = $1 AND r.organization_id = $2;
`

func (s *PostgresStore) GetGithubFileChangeByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubFileChange, error) {
	row := s.db.QueryRow(ctx, getGithubFileChangeByID, id, orgID)
	fc, err := scanGithubFileChange(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning github file change: %w", err)
	}
	return fc, nil
}

const listGithubFileChangesByRepo = `-- name: ListGithubFileChangesByRepo :many
SELECT fc.id, fc.repository_id, fc.path, fc.content, fc.commit_message, fc.status, fc.commit_url, fc.created_at, fc.updated_at
FROM github_file_changes fc
JOIN github_repositories r ON r.id = fc.repository_id
WHERE fc.repository_id = $1 AND r.organization_id = $2
ORDER BY fc.created_at DESC;
`

func (s *PostgresStore) ListGithubFileChangesByRepo(ctx context.Context, repositoryID, orgID uuid.UUID) ([]db_models.GithubFileChange, error) {
	rows, err := s.db.Query(ctx, listGithubFileChangesByRepo, repositoryID, orgID)
	if err != nil {
		return nil, fmt.Errorf("error querying github file changes: %w", err)
	}
	defer rows.Close()

	var items []db_models.GithubFileChange
	for rows.Next() {
		fc, err := scanGithubFileChange(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning github file change row: %w", err)
		}
		items = append(items, *fc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating github file change rows: %w", err)
	}

	return items, nil
}

const updateGithubFileChangeStatus = `-- name: UpdateGithubFileChangeStatus :exec
UPDATE github_file_changes
SET status = $1, commit_url = $2, updated_at = NOW()
WHERE id = $3;
`

func (s *PostgresStore) UpdateGithubFileChangeStatus(ctx context.Context, id uuid.UUID, status db_models.FileChangeStatus, commitURL *string) error {
	tag, err := s.db.Exec(ctx, updateGithubFileChangeStatus, status, commitURL, id)
	if err != nil {
		return fmt.Errorf("error executing update file change status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const deleteGithubFileChange = `-- name: DeleteGithubFileChange :exec
DELETE FROM github_file_changes fc
USING github_repositories r
WHERE fc.id = $1 AND fc.repository_id = r.id AND r.organization_id = $2;
`

func (s *PostgresStore) DeleteGithubFileChange(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteGithubFileChange, id, orgID)
	if err != nil {
		return fmt.Errorf("error executing delete github file change: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// scanGithubFileChange scans one file change row from either a Row or Rows.
func scanGithubFileChange(row pgx.Row) (*db_models.GithubFileChange, error) {
	var fc db_models.GithubFileChange
	err := row.Scan(
		&fc.ID,
		&fc.RepositoryID,
		&fc.Path,
		&fc.Content,
		&fc.CommitMessage,
		&fc.Status,
		&fc.CommitURL,
		&fc.CreatedAt,
		&fc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fc, nil
}
