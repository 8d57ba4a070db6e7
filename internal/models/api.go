package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// --- Auth DTOs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse defines the user information returned by the API.
// Never includes the password hash.
type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// --- Chat DTOs ---

// ChatMessageInput is a single message in a chat completion request.
type ChatMessageInput struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatRequest defines the body for POST /v1/chat.
// When SessionID is set, the final user message and the assistant reply are
// persisted to that session.
type ChatRequest struct {
	SessionID      *uuid.UUID         `json:"session_id,omitempty"`
	Messages       []ChatMessageInput `json:"messages"`
	SystemPromptID *uuid.UUID         `json:"system_prompt_id,omitempty"`
}

// ChatUsage reports token consumption for a completion.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse defines the response for POST /v1/chat.
type ChatResponse struct {
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Model     string     `json:"model"`
	Usage     ChatUsage  `json:"usage"`
}

// --- Session DTOs ---

// CreateSessionRequest defines the body for creating a chat session.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// UpdateSessionRequest defines the body for renaming a chat session.
type UpdateSessionRequest struct {
	Name string `json:"name"`
}

// MessageResponse is the API representation of a stored message.
type MessageResponse struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionResponse is the API representation of a chat session.
// Messages is populated on detail views only.
type SessionResponse struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Name           string            `json:"name"`
	Messages       []MessageResponse `json:"messages,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ListSessionsResponse defines the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// --- System Prompt DTOs ---

// CreatePromptRequest defines the body for creating a system prompt.
type CreatePromptRequest struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	IsDefault bool   `json:"is_default"`
}

// UpdatePromptRequest defines the body for updating a system prompt.
// Only fields present in the request are updated.
type UpdatePromptRequest struct {
	Name      *string `json:"name"`
	Content   *string `json:"content"`
	IsDefault *bool   `json:"is_default"`
}

// PromptResponse is the API representation of a system prompt.
type PromptResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Content        string    `json:"content"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListPromptsResponse defines the response for listing prompts.
type ListPromptsResponse struct {
	Prompts []PromptResponse `json:"prompts"`
}

// --- GitHub Credential DTOs ---

// CreateGithubCredentialRequest defines the body for storing a GitHub token.
// The token is only ever accepted here; it is sealed before storage and
// never returned in any response.
type CreateGithubCredentialRequest struct {
	Token string `json:"token"`
}

// GithubCredentialResponse is the API representation of a stored credential.
// It EXCLUDES the token in any form.
type GithubCredentialResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Username       string    `json:"username"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TestCredentialResponse defines the response for testing a credential.
type TestCredentialResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- GitHub Repository DTOs ---

// CreateRepositoryRequest defines the body for tracking a repository.
type CreateRepositoryRequest struct {
	CredentialID uuid.UUID `json:"credential_id"`
	Owner        string    `json:"owner"`
	Repo         string    `json:"repo"`
}

// RepositoryResponse is the API representation of a tracked repository.
type RepositoryResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	CredentialID   uuid.UUID       `json:"credential_id"`
	Owner          string          `json:"owner"`
	Repo           string          `json:"repo"`
	DefaultBranch  string          `json:"default_branch"`
	LastAnalyzed   *time.Time      `json:"last_analyzed,omitempty"`
	Summary        json.RawMessage `json:"summary,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ListRepositoriesResponse defines the response for listing repositories.
type ListRepositoriesResponse struct {
	Repositories []RepositoryResponse `json:"repositories"`
}

// --- GitHub File Change DTOs ---

// GenerateFileChangesRequest defines the body for requesting AI-generated
// file changes against a repository.
type GenerateFileChangesRequest struct {
	Instruction string `json:"instruction"`
}

// FileChangeResponse is the API representation of a proposed file change.
type FileChangeResponse struct {
	ID            uuid.UUID        `json:"id"`
	RepositoryID  uuid.UUID        `json:"repository_id"`
	Path          string           `json:"path"`
	Content       string           `json:"content"`
	CommitMessage string           `json:"commit_message"`
	Status        FileChangeStatus `json:"status"`
	CommitURL     *string          `json:"commit_url,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ListFileChangesResponse defines the response for listing file changes.
type ListFileChangesResponse struct {
	FileChanges []FileChangeResponse `json:"file_changes"`
}
