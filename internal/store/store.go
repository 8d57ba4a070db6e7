package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	db_models "repochat-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// --- Chat session params ---

// CreateChatSessionParams contains parameters for creating a chat session.
type CreateChatSessionParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
}

// CreateMessageParams contains parameters for appending a message to a session.
type CreateMessageParams struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Role       string
	Content    string
	TokenCount int
}

// --- System prompt params ---

// CreateSystemPromptParams contains parameters for creating a system prompt.
type CreateSystemPromptParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Content        string
	IsDefault      bool
}

// UpdateSystemPromptParams contains parameters for updating a system prompt.
// Nil pointers leave the corresponding field unchanged.
type UpdateSystemPromptParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           *string
	Content        *string
	IsDefault      *bool
}

// --- GitHub params ---

// CreateGithubCredentialParams contains parameters for storing a credential.
// EncryptedToken is the AES-GCM sealed token bytes.
type CreateGithubCredentialParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Username       string
	EncryptedToken []byte
}

// CreateGithubRepositoryParams contains parameters for tracking a repository.
type CreateGithubRepositoryParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	CredentialID   uuid.UUID
	Owner          string
	Repo           string
	DefaultBranch  string
}

// CreateGithubFileChangeParams contains parameters for creating a file change.
// Status is always created as pending.
type CreateGithubFileChangeParams struct {
	ID            uuid.UUID
	RepositoryID  uuid.UUID
	Path          string
	Content       string
	CommitMessage string
}

// Store defines the persistence operations used by the services.
type Store interface {
	// Users & organizations
	GetUserByEmail(ctx context.Context, email string) (*db_models.User, error)
	CreateUser(ctx context.Context, user *db_models.User) error
	CreateOrganization(ctx context.Context, org *db_models.Organization) error

	// Chat sessions & messages
	CreateChatSession(ctx context.Context, arg CreateChatSessionParams) (*db_models.ChatSession, error)
	GetChatSessionByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.ChatSession, error)
	ListChatSessions(ctx context.Context, orgID uuid.UUID) ([]db_models.ChatSession, error)
	RenameChatSession(ctx context.Context, id, orgID uuid.UUID, name string) (*db_models.ChatSession, error)
	DeleteChatSession(ctx context.Context, id, orgID uuid.UUID) error
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*db_models.Message, error)
	ListMessagesBySession(ctx context.Context, sessionID uuid.UUID) ([]db_models.Message, error)

	// System prompts
	CreateSystemPrompt(ctx context.Context, arg CreateSystemPromptParams) (*db_models.SystemPrompt, error)
	GetSystemPromptByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.SystemPrompt, error)
	GetDefaultSystemPrompt(ctx context.Context, orgID uuid.UUID) (*db_models.SystemPrompt, error)
	ListSystemPrompts(ctx context.Context, orgID uuid.UUID) ([]db_models.SystemPrompt, error)
	UpdateSystemPrompt(ctx context.Context, arg UpdateSystemPromptParams) (*db_models.SystemPrompt, error)
	DeleteSystemPrompt(ctx context.Context, id, orgID uuid.UUID) error

	// GitHub credentials
	CreateGithubCredential(ctx context.Context, arg CreateGithubCredentialParams) (*db_models.GithubCredential, error)
	GetGithubCredentialByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubCredential, error)
	ListGithubCredentials(ctx context.Context, orgID uuid.UUID) ([]db_models.GithubCredential, error)
	DeleteGithubCredential(ctx context.Context, id, orgID uuid.UUID) error

	// GitHub repositories
	CreateGithubRepository(ctx context.Context, arg CreateGithubRepositoryParams) (*db_models.GithubRepository, error)
	GetGithubRepositoryByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubRepository, error)
	ListGithubRepositories(ctx context.Context, orgID uuid.UUID) ([]db_models.GithubRepository, error)
	DeleteGithubRepository(ctx context.Context, id, orgID uuid.UUID) error
	UpdateRepositoryAnalysis(ctx context.Context, id, orgID uuid.UUID, summary json.RawMessage, analyzedAt time.Time) (*db_models.GithubRepository, error)

	// GitHub file changes (org-scoped through their repository)
	CreateGithubFileChange(ctx context.Context, arg CreateGithubFileChangeParams) (*db_models.GithubFileChange, error)
	GetGithubFileChangeByID(ctx context.Context, id, orgID uuid.UUID) (*db_models.GithubFileChange, error)
	ListGithubFileChangesByRepo(ctx context.Context, repositoryID, orgID uuid.UUID) ([]db_models.GithubFileChange, error)
	UpdateGithubFileChangeStatus(ctx context.Context, id uuid.UUID, status db_models.FileChangeStatus, commitURL *string) error
	DeleteGithubFileChange(ctx context.Context, id, orgID uuid.UUID) error
}
