package integrations

// DecryptedCredentials holds raw secret values keyed by field name.
// Instances only ever live in memory between decryption and a vendor call.
type DecryptedCredentials map[string]string

// TestConnectionResult reports the outcome of testing credentials against
// the external service.
type TestConnectionResult struct {
	Success bool
	Message string
	// Details carries service-specific extras, e.g. the authenticated
	// username fetched during a GitHub test.
	Details map[string]interface{}
}

// GithubCredentials defines the expected credential keys for GitHub.
type GithubCredentials struct {
	Token string `json:"token"`
}

// OpenAICredentials defines the expected credential keys for an
// OpenAI-compatible endpoint.
type OpenAICredentials struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
}
