package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	integration_models "repochat-backend/internal/models/integrations"
)

func completionsServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAITestConnection_Success(t *testing.T) {
	var gotAuth string
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"test-model","choices":[{"message":{"role":"assistant","content":"pong"}}]}`))
	})

	integration := NewOpenAIIntegration(srv.URL, "test-model")
	result, err := integration.TestConnection(context.Background(), integration_models.DecryptedCredentials{"api_key": "sk-test"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestOpenAITestConnection_EmptyKeyAllowed(t *testing.T) {
	var gotAuth string
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`))
	})

	integration := NewOpenAIIntegration(srv.URL, "local-model")
	result, err := integration.TestConnection(context.Background(), integration_models.DecryptedCredentials{"api_key": ""})
	require.NoError(t, err)
	assert.True(t, result.Success, "unauthenticated local endpoints must pass")
	assert.Empty(t, gotAuth)
}

func TestOpenAITestConnection_InvalidKey(t *testing.T) {
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	integration := NewOpenAIIntegration(srv.URL, "test-model")
	result, err := integration.TestConnection(context.Background(), integration_models.DecryptedCredentials{"api_key": "sk-wrong"})
	require.NoError(t, err, "an invalid key is a failed test, not a system error")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Unauthorized")
}

func TestOpenAITestConnection_BaseURLOverride(t *testing.T) {
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`))
	})

	// Default base URL points nowhere; the credential override must win.
	integration := NewOpenAIIntegration("http://127.0.0.1:1", "test-model")
	result, err := integration.TestConnection(context.Background(), integration_models.DecryptedCredentials{
		"api_key":  "sk-test",
		"base_url": srv.URL,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}
