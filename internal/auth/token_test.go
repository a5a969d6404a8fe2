package auth

import (
	"testing"
	"time"

	"github.com/finiti/glossary-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func testUser() *models.User {
	return &models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
		Role:     "Admin",
		IsAdmin:  true,
	}
}

func TestTokenManager_GenerateAndValidate(t *testing.T) {
	tm := NewTokenManager(testSecret, 5*time.Minute)

	token, err := tm.GenerateAccessToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, "Admin", claims.Role)
	assert.True(t, claims.IsAdmin)
	assert.NotEmpty(t, claims.ID, "token should carry a JTI")
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	tm := NewTokenManager(testSecret, -1*time.Minute)

	token, err := tm.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	tm := NewTokenManager(testSecret, 5*time.Minute)
	other := NewTokenManager("another-secret-32-characters-ok!", 5*time.Minute)

	token, err := tm.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_Garbage(t *testing.T) {
	tm := NewTokenManager(testSecret, 5*time.Minute)

	_, err := tm.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}
