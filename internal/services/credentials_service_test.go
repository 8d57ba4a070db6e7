package services

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repochat-backend/internal/crypto"
	githubapi "repochat-backend/internal/github"
	"repochat-backend/internal/integrations"
	api_models "repochat-backend/internal/models"
	"repochat-backend/internal/store"
)

func newCredentialsFixture(t *testing.T, gh *fakeGithubAPI) (CredentialsService, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	aead, err := crypto.NewAESGCM(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	reg := integrations.NewRegistry()
	reg.Register(ServiceTypeGithub, integrations.NewGithubIntegration(fakeFactory(gh)))

	return NewCredentialsService(st, aead, reg), st
}

func TestCreateCredential_SealsTokenAndStoresUsername(t *testing.T) {
	gh := &fakeGithubAPI{
		authenticatedUserFunc: func(ctx context.Context) (string, error) {
			return "hubber", nil
		},
	}
	svc, st := newCredentialsFixture(t, gh)
	orgID := uuid.New()

	resp, err := svc.CreateCredential(context.Background(), api_models.CreateGithubCredentialRequest{Token: "ghp_secret"}, orgID)
	require.NoError(t, err)

	assert.Equal(t, "hubber", resp.Username)
	assert.Equal(t, orgID, resp.OrganizationID)
	assert.Equal(t, "ghp_secret", gh.token, "token must reach the GitHub client unmodified")

	stored := st.creds[resp.ID]
	require.NotNil(t, stored)
	assert.NotContains(t, string(stored.EncryptedToken), "ghp_secret", "token must not be stored in the clear")

	// The sealed token must round-trip back to the original.
	token, err := svc.DecryptToken(stored)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", token)
}

func TestCreateCredential_RejectsEmptyToken(t *testing.T) {
	svc, _ := newCredentialsFixture(t, &fakeGithubAPI{})

	_, err := svc.CreateCredential(context.Background(), api_models.CreateGithubCredentialRequest{Token: "   "}, uuid.New())
	assert.ErrorIs(t, err, ErrCredentialValidation)
}

func TestCreateCredential_RejectsInvalidToken(t *testing.T) {
	gh := &fakeGithubAPI{
		authenticatedUserFunc: func(ctx context.Context) (string, error) {
			return "", &githubapi.APIError{StatusCode: http.StatusUnauthorized, Message: "Bad credentials"}
		},
	}
	svc, st := newCredentialsFixture(t, gh)

	_, err := svc.CreateCredential(context.Background(), api_models.CreateGithubCredentialRequest{Token: "ghp_bad"}, uuid.New())
	assert.ErrorIs(t, err, ErrCredentialTestFailed)
	assert.Empty(t, st.creds, "nothing may be stored when the pre-save test fails")
}

func TestGetCredential_NeverReturnsToken(t *testing.T) {
	svc, _ := newCredentialsFixture(t, &fakeGithubAPI{})
	orgID := uuid.New()

	created, err := svc.CreateCredential(context.Background(), api_models.CreateGithubCredentialRequest{Token: "ghp_secret"}, orgID)
	require.NoError(t, err)

	got, err := svc.GetCredential(context.Background(), created.ID, orgID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	// GithubCredentialResponse has no token field at all; spot-check the username.
	assert.Equal(t, "octocat", got.Username)
}

func TestGetCredential_OrgScoped(t *testing.T) {
	svc, _ := newCredentialsFixture(t, &fakeGithubAPI{})

	created, err := svc.CreateCredential(context.Background(), api_models.CreateGithubCredentialRequest{Token: "ghp_secret"}, uuid.New())
	require.NoError(t, err)

	_, err = svc.GetCredential(context.Background(), created.ID, uuid.New())
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestTestCredential_ReportsOutcome(t *testing.T) {
	gh := &fakeGithubAPI{}
	svc, _ := newCredentialsFixture(t, gh)
	orgID := uuid.New()

	created, err := svc.CreateCredential(context.Background(), api_models.CreateGithubCredentialRequest{Token: "ghp_secret"}, orgID)
	require.NoError(t, err)

	resp, err := svc.TestCredential(context.Background(), created.ID, orgID)
	require.NoError(t, err)
	assert.True(t, resp.Success)

	// Token revoked after storage: the test reports failure, not an error.
	gh.authenticatedUserFunc = func(ctx context.Context) (string, error) {
		return "", &githubapi.APIError{StatusCode: http.StatusUnauthorized, Message: "Bad credentials"}
	}
	resp, err = svc.TestCredential(context.Background(), created.ID, orgID)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Unauthorized")
}

func TestDeleteCredential_CascadesToRepositoriesAndFileChanges(t *testing.T) {
	svc, st := newCredentialsFixture(t, &fakeGithubAPI{})
	orgID := uuid.New()

	cred, err := svc.CreateCredential(context.Background(), api_models.CreateGithubCredentialRequest{Token: "ghp_secret"}, orgID)
	require.NoError(t, err)

	repo, err := st.CreateGithubRepository(context.Background(), store.CreateGithubRepositoryParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		CredentialID:   cred.ID,
		Owner:          "octocat",
		Repo:           "hello-world",
		DefaultBranch:  "main",
	})
	require.NoError(t, err)
	change, err := st.CreateGithubFileChange(context.Background(), store.CreateGithubFileChangeParams{
		ID:            uuid.New(),
		RepositoryID:  repo.ID,
		Path:          "README.md",
		Content:       "# hello",
		CommitMessage: "Add readme",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCredential(context.Background(), cred.ID, orgID))

	_, err = st.GetGithubRepositoryByID(context.Background(), repo.ID, orgID)
	assert.ErrorIs(t, err, store.ErrNotFound, "repositories must go with their credential")
	assert.NotContains(t, st.changes, change.ID, "file changes must go with their repository")
}

func TestDeleteCredential_NotFound(t *testing.T) {
	svc, _ := newCredentialsFixture(t, &fakeGithubAPI{})

	err := svc.DeleteCredential(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}
