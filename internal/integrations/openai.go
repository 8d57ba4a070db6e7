package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"repochat-backend/internal/llm"
	integration_models "repochat-backend/internal/models/integrations"
)

// Ensure OpenAIIntegration implements the Integration interface.
var _ Integration = (*OpenAIIntegration)(nil)

// OpenAIIntegration verifies connectivity to an OpenAI-compatible endpoint.
type OpenAIIntegration struct {
	defaultBaseURL string
	model          string
}

// NewOpenAIIntegration creates a new OpenAI integration handler.
func NewOpenAIIntegration(defaultBaseURL, model string) *OpenAIIntegration {
	return &OpenAIIntegration{defaultBaseURL: defaultBaseURL, model: model}
}

// TestConnection issues a minimal completion to verify the key and endpoint.
// An empty api_key is allowed; local endpoints often run unauthenticated and
// the client omits the Authorization header in that case.
func (o *OpenAIIntegration) TestConnection(ctx context.Context, decryptedCreds integration_models.DecryptedCredentials) (*integration_models.TestConnectionResult, error) {
	apiKey := decryptedCreds["api_key"]
	baseURL := decryptedCreds["base_url"]
	if baseURL == "" {
		baseURL = o.defaultBaseURL
	}

	client := llm.NewClient(baseURL, apiKey, o.model)
	_, err := client.Complete(ctx, []llm.Message{{Role: "user", Content: "ping"}})
	if err != nil {
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			message := fmt.Sprintf("LLM API error (%d): %s", apiErr.StatusCode, apiErr.Message)
			if apiErr.StatusCode == http.StatusUnauthorized {
				message = "LLM API Error: Invalid API key (Unauthorized)."
			}
			return &integration_models.TestConnectionResult{
				Success: false,
				Message: message,
			}, nil
		}
		return nil, fmt.Errorf("failed during LLM connection test: %w", err)
	}

	return &integration_models.TestConnectionResult{
		Success: true,
		Message: "Successfully connected to the LLM endpoint",
	}, nil
}

// GetCredentialSchema returns an empty OpenAICredentials struct to define the expected credential keys.
func (o *OpenAIIntegration) GetCredentialSchema() interface{} {
	return integration_models.OpenAICredentials{}
}
