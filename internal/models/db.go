package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents a user in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Organization represents an organization or workspace in the database.
type Organization struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ChatSession is a container for a conversation's messages.
type ChatSession struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Name           string    `db:"name"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Message is a single chat message belonging to a session.
// Deleting the session cascades to its messages.
type Message struct {
	ID         uuid.UUID `db:"id"`
	SessionID  uuid.UUID `db:"session_id"`
	Role       string    `db:"role"` // "user", "assistant", "system"
	Content    string    `db:"content"`
	TokenCount int       `db:"token_count"`
	CreatedAt  time.Time `db:"created_at"`
}

// SystemPrompt is a reusable named prompt. At most one prompt per
// organization has IsDefault set; writes that set it clear all others.
type SystemPrompt struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Name           string    `db:"name"`
	Content        string    `db:"content"`
	IsDefault      bool      `db:"is_default"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// GithubCredential stores a GitHub personal access token, AES-GCM sealed.
// The raw token never leaves the service layer.
type GithubCredential struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Username       string    `db:"username"`
	EncryptedToken []byte    `db:"encrypted_token"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// GithubRepository is a tracked repository tied to a stored credential.
// Deleting the credential cascades to its repositories.
type GithubRepository struct {
	ID             uuid.UUID       `db:"id"`
	OrganizationID uuid.UUID       `db:"organization_id"`
	CredentialID   uuid.UUID       `db:"credential_id"`
	Owner          string          `db:"owner"`
	Repo           string          `db:"repo"`
	DefaultBranch  string          `db:"default_branch"`
	LastAnalyzed   *time.Time      `db:"last_analyzed"` // nil until first successful analysis
	Summary        json.RawMessage `db:"summary"`       // JSONB, nil until first successful analysis
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// FileChangeStatus is the lifecycle state of a proposed file change.
type FileChangeStatus string

const (
	FileChangeStatusPending   FileChangeStatus = "pending"
	FileChangeStatusCommitted FileChangeStatus = "committed"
	FileChangeStatusFailed    FileChangeStatus = "failed"
)

// GithubFileChange is an AI-proposed change to a single file.
// Deleting the repository cascades to its file changes.
type GithubFileChange struct {
	ID            uuid.UUID        `db:"id"`
	RepositoryID  uuid.UUID        `db:"repository_id"`
	Path          string           `db:"path"`
	Content       string           `db:"content"`
	CommitMessage string           `db:"commit_message"`
	Status        FileChangeStatus `db:"status"`
	CommitURL     *string          `db:"commit_url"` // set once committed
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
}
