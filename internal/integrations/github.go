package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	githubapi "repochat-backend/internal/github"
	integration_models "repochat-backend/internal/models/integrations"
)

// Ensure GithubIntegration implements the Integration interface.
var _ Integration = (*GithubIntegration)(nil)

// GithubIntegration handles GitHub-specific logic.
type GithubIntegration struct {
	factory githubapi.Factory
}

// NewGithubIntegration creates a new GitHub integration handler.
func NewGithubIntegration(factory githubapi.Factory) *GithubIntegration {
	return &GithubIntegration{factory: factory}
}

// TestConnection verifies the token by fetching the authenticated user.
// On success the username is returned in Details["username"].
func (g *GithubIntegration) TestConnection(ctx context.Context, decryptedCreds integration_models.DecryptedCredentials) (*integration_models.TestConnectionResult, error) {
	token, ok := decryptedCreds["token"]
	if !ok || token == "" {
		return &integration_models.TestConnectionResult{
			Success: false,
			Message: "Missing or empty 'token' in GitHub credentials",
		}, nil // Credential format error, not a system error
	}

	client := g.factory(token)
	login, err := client.AuthenticatedUser(ctx)
	if err != nil {
		var apiErr *githubapi.APIError
		if errors.As(err, &apiErr) {
			message := fmt.Sprintf("GitHub API error (%d): %s", apiErr.StatusCode, apiErr.Message)
			if apiErr.StatusCode == http.StatusUnauthorized {
				message = "GitHub API Error: Invalid token (Unauthorized)."
			}
			return &integration_models.TestConnectionResult{
				Success: false,
				Message: message,
			}, nil // API error, not a system error
		}
		// Network, context deadline, etc.
		return nil, fmt.Errorf("failed during GitHub connection test: %w", err)
	}

	return &integration_models.TestConnectionResult{
		Success: true,
		Message: fmt.Sprintf("Successfully connected to GitHub as '%s'", login),
		Details: map[string]interface{}{"username": login},
	}, nil
}

// GetCredentialSchema returns an empty GithubCredentials struct to define the expected credential keys.
func (g *GithubIntegration) GetCredentialSchema() interface{} {
	return integration_models.GithubCredentials{}
}
