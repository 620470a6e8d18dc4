package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-0123456789abcdef"

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService(testJWTSecret, time.Hour)
	userID := uuid.New()
	orgID := uuid.New()

	token, err := s.Generate(userID, orgID, "broker@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, orgID, claims.OrgID)
	assert.Equal(t, "broker@example.com", claims.Email)
}

func TestJWTService_WrongSecret(t *testing.T) {
	s := NewJWTService(testJWTSecret, time.Hour)
	token, err := s.Generate(uuid.New(), uuid.New(), "broker@example.com")
	require.NoError(t, err)

	other := NewJWTService("a-different-secret-entirely", time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	s := NewJWTService(testJWTSecret, -time.Minute)
	token, err := s.Generate(uuid.New(), uuid.New(), "broker@example.com")
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.Error(t, err)
}

func TestJWTService_Garbage(t *testing.T) {
	s := NewJWTService(testJWTSecret, time.Hour)
	_, err := s.Verify("not.a.token")
	assert.Error(t, err)
}
