package services

import (
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"repochat-backend/internal/crypto"
	"repochat-backend/internal/integrations"
	api_models "repochat-backend/internal/models"
	db_models "repochat-backend/internal/models"
	integration_models "repochat-backend/internal/models/integrations"
	"repochat-backend/internal/store"
)

// ServiceTypeGithub is the registry key for the GitHub integration.
const ServiceTypeGithub = "GITHUB"

// ServiceTypeOpenAI is the registry key for the OpenAI-compatible integration.
const ServiceTypeOpenAI = "OPENAI"

// Custom errors for Credentials service
var (
	ErrCredentialNotFound   = errors.New("github credential not found")
	ErrCredentialValidation = errors.New("credential validation failed")
	ErrCredentialEncryption = errors.New("credential encryption failed")
	ErrCredentialDecryption = errors.New("credential decryption failed")
	ErrCredentialTestFailed = errors.New("credential test failed")
)

// CredentialsService defines the interface for GitHub credential operations.
type CredentialsService interface {
	CreateCredential(ctx context.Context, req api_models.CreateGithubCredentialRequest, orgID uuid.UUID) (*api_models.GithubCredentialResponse, error)
	GetCredential(ctx context.Context, id, orgID uuid.UUID) (*api_models.GithubCredentialResponse, error)
	ListCredentials(ctx context.Context, orgID uuid.UUID) ([]api_models.GithubCredentialResponse, error)
	DeleteCredential(ctx context.Context, id, orgID uuid.UUID) error
	TestCredential(ctx context.Context, id, orgID uuid.UUID) (*api_models.TestCredentialResponse, error)
	// DecryptToken unseals a stored token for use by other services.
	DecryptToken(cred *db_models.GithubCredential) (string, error)
}

type credentialsService struct {
	store    store.Store
	aead     cipher.AEAD
	registry *integrations.Registry
}

// NewCredentialsService creates a new CredentialsService.
func NewCredentialsService(s store.Store, aeadCipher cipher.AEAD, reg *integrations.Registry) CredentialsService {
	return &credentialsService{
		store:    s,
		aead:     aeadCipher,
		registry: reg,
	}
}

func mapDbCredentialToResponse(dbCred *db_models.GithubCredential) *api_models.GithubCredentialResponse {
	return &api_models.GithubCredentialResponse{
		ID:             dbCred.ID,
		OrganizationID: dbCred.OrganizationID,
		Username:       dbCred.Username,
		CreatedAt:      dbCred.CreatedAt,
		UpdatedAt:      dbCred.UpdatedAt,
	}
}

// CreateCredential validates the token against the GitHub API, seals it, and
// stores it along with the username the test fetched.
func (s *credentialsService) CreateCredential(ctx context.Context, req api_models.CreateGithubCredentialRequest, orgID uuid.UUID) (*api_models.GithubCredentialResponse, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: token cannot be empty", ErrCredentialValidation)
	}

	// --- Pre-Save Test and Username Fetch ---
	integration, err := s.registry.Get(ServiceTypeGithub)
	if err != nil {
		log.Printf("ERROR [CredService] CreateCredential: Failed to get GitHub integration handler: %v", err)
		return nil, fmt.Errorf("internal configuration error for GitHub service")
	}

	testResult, err := integration.TestConnection(ctx, integration_models.DecryptedCredentials{"token": token})
	if err != nil {
		log.Printf("ERROR [CredService] CreateCredential: GitHub TestConnection system error for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to test GitHub connection: %w", err)
	}
	if !testResult.Success {
		log.Printf("WARN [CredService] CreateCredential: GitHub pre-save test failed for OrgID %s: %s", orgID, testResult.Message)
		return nil, fmt.Errorf("%w: %s", ErrCredentialTestFailed, testResult.Message)
	}

	username, _ := testResult.Details["username"].(string)
	if username == "" {
		log.Printf("WARN [CredService] CreateCredential: GitHub test succeeded but no username returned for OrgID %s", orgID)
	}

	// Seal the raw token
	encryptedToken, err := crypto.Encrypt(s.aead, []byte(token))
	if err != nil {
		log.Printf("ERROR [CredService] CreateCredential: Encryption failed for OrgID %s: %v", orgID, err)
		return nil, ErrCredentialEncryption
	}

	dbCred, err := s.store.CreateGithubCredential(ctx, store.CreateGithubCredentialParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Username:       username,
		EncryptedToken: encryptedToken,
	})
	if err != nil {
		log.Printf("ERROR [CredService] CreateCredential: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	log.Printf("[CredService] CreateCredential: Successfully created CredID %s for OrgID %s (user '%s')", dbCred.ID, orgID, dbCred.Username)
	return mapDbCredentialToResponse(dbCred), nil
}

// GetCredential retrieves a credential by ID for the specified organization.
func (s *credentialsService) GetCredential(ctx context.Context, id, orgID uuid.UUID) (*api_models.GithubCredentialResponse, error) {
	dbCred, err := s.store.GetGithubCredentialByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCredentialNotFound
		}
		log.Printf("ERROR [CredService] GetCredential: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve credential: %w", err)
	}
	return mapDbCredentialToResponse(dbCred), nil
}

// ListCredentials retrieves all credentials for the specified organization.
func (s *credentialsService) ListCredentials(ctx context.Context, orgID uuid.UUID) ([]api_models.GithubCredentialResponse, error) {
	dbCreds, err := s.store.ListGithubCredentials(ctx, orgID)
	if err != nil {
		log.Printf("ERROR [CredService] ListCredentials: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	resp := make([]api_models.GithubCredentialResponse, len(dbCreds))
	for i := range dbCreds {
		resp[i] = *mapDbCredentialToResponse(&dbCreds[i])
	}
	return resp, nil
}

// DeleteCredential deletes a credential; dependent repositories and file
// changes are removed by the database cascade.
func (s *credentialsService) DeleteCredential(ctx context.Context, id, orgID uuid.UUID) error {
	err := s.store.DeleteGithubCredential(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCredentialNotFound
		}
		log.Printf("ERROR [CredService] DeleteCredential: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	log.Printf("[CredService] DeleteCredential: Successfully deleted CredID %s for OrgID %s", id, orgID)
	return nil
}

// TestCredential attempts to verify the stored credential against the GitHub API.
func (s *credentialsService) TestCredential(ctx context.Context, id, orgID uuid.UUID) (*api_models.TestCredentialResponse, error) {
	dbCred, err := s.store.GetGithubCredentialByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCredentialNotFound
		}
		log.Printf("ERROR [CredService] TestCredential: GetByID failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve credential: %w", err)
	}

	token, err := s.DecryptToken(dbCred)
	if err != nil {
		log.Printf("ERROR [CredService] TestCredential: Decryption failed for ID %s: %v", id, err)
		return &api_models.TestCredentialResponse{
			Success: false,
			Message: "Failed to decrypt credential for testing.",
		}, nil // Return failure as part of the response, not a 500
	}

	integration, err := s.registry.Get(ServiceTypeGithub)
	if err != nil {
		log.Printf("ERROR [CredService] TestCredential: Registry lookup failed for ID %s: %v", id, err)
		return nil, fmt.Errorf("internal configuration error for GitHub service")
	}

	testResult, err := integration.TestConnection(ctx, integration_models.DecryptedCredentials{"token": token})
	if err != nil {
		log.Printf("ERROR [CredService] TestCredential: integration.TestConnection failed for ID %s: %v", id, err)
		return nil, fmt.Errorf("error occurred during connection test: %w", err)
	}
	log.Printf("[CredService] TestCredential: Completed for ID %s. Success: %v, Message: '%s'", id, testResult.Success, testResult.Message)

	return &api_models.TestCredentialResponse{
		Success: testResult.Success,
		Message: testResult.Message,
	}, nil
}

// DecryptToken unseals a stored token. Never log the returned value.
func (s *credentialsService) DecryptToken(cred *db_models.GithubCredential) (string, error) {
	plaintext, err := crypto.Decrypt(s.aead, cred.EncryptedToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialDecryption, err)
	}
	return string(plaintext), nil
}
