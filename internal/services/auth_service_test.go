package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repochat-backend/internal/config"
)

func newAuthFixture() (*AuthService, *fakeStore) {
	st := newFakeStore()
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		TokenExpiration: time.Hour,
	}
	return NewAuthService(st, cfg), st
}

func TestSignup_CreatesOrgAndUser(t *testing.T) {
	svc, st := newAuthFixture()

	user, err := svc.Signup(context.Background(), "Alice@Example.com", "hunter22")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.NotEqual(t, "hunter22", user.HashedPassword)
	require.Contains(t, st.orgs, user.OrganizationID)
	assert.Contains(t, st.orgs[user.OrganizationID].Name, "alice@example.com")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Signup(context.Background(), "bob@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), "bob@example.com", "other")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Signup(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Signup(context.Background(), "a@b.com", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin_Success(t *testing.T) {
	svc, _ := newAuthFixture()

	created, err := svc.Signup(context.Background(), "carol@example.com", "correct-pw")
	require.NoError(t, err)

	token, user, err := svc.Login(context.Background(), "carol@example.com", "correct-pw")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, created.ID, user.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Signup(context.Background(), "dave@example.com", "right")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "dave@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newAuthFixture()

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
