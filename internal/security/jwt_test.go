package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret-key-32-characters!!!", 15*time.Minute)
	userID := uuid.New()

	token, err := manager.GenerateAccessToken(userID, "analyst@example.com")
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "analyst@example.com", claims.Email)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-one", 15*time.Minute)
	verifier := NewJWTManager("secret-two", 15*time.Minute)

	token, err := issuer.GenerateAccessToken(uuid.New(), "")
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key-32-characters!!!", -time.Minute)

	token, err := manager.GenerateAccessToken(uuid.New(), "")
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret-key-32-characters!!!", 15*time.Minute)

	_, err := manager.ValidateAccessToken("not.a.token")
	assert.Error(t, err)
}
