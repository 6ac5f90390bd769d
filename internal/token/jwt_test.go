package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydesk/studydesk-server/internal/model"
)

func TestJWT_RoundTrip(t *testing.T) {
	manager := NewJWT("secret", time.Hour)
	identity := model.Identity{
		ID:    uuid.New(),
		Email: "user@example.com",
		Name:  "User",
	}

	tokenString, err := manager.GenerateSessionToken(identity)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	userID, err := manager.ParseSessionToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, userID)
}

func TestJWT_WrongSecret(t *testing.T) {
	identity := model.Identity{ID: uuid.New(), Email: "user@example.com"}

	tokenString, err := NewJWT("secret", time.Hour).GenerateSessionToken(identity)
	require.NoError(t, err)

	userID, err := NewJWT("other-secret", time.Hour).ParseSessionToken(tokenString)
	assert.Error(t, err)
	assert.Equal(t, uuid.Nil, userID)
}

func TestJWT_ExpiredToken(t *testing.T) {
	manager := &JWT{secretKey: "secret", ttl: -time.Hour}
	identity := model.Identity{ID: uuid.New(), Email: "user@example.com"}

	tokenString, err := manager.GenerateSessionToken(identity)
	require.NoError(t, err)

	userID, err := manager.ParseSessionToken(tokenString)
	assert.Error(t, err)
	assert.Equal(t, uuid.Nil, userID)
}

func TestJWT_RejectsWrongTokenType(t *testing.T) {
	now := time.Now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID:    uuid.New(),
		Email:     "user@example.com",
		TokenType: "refresh",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	userID, err := NewJWT("secret", time.Hour).ParseSessionToken(signed)
	assert.Error(t, err)
	assert.Equal(t, uuid.Nil, userID)
}

func TestJWT_GarbageToken(t *testing.T) {
	userID, err := NewJWT("secret", time.Hour).ParseSessionToken("not-a-jwt")
	assert.Error(t, err)
	assert.Equal(t, uuid.Nil, userID)
}

func TestNewJWT_DefaultTTL(t *testing.T) {
	manager := NewJWT("secret", 0)

	tokenString, err := manager.GenerateSessionToken(model.Identity{ID: uuid.New()})
	require.NoError(t, err)

	_, err = manager.ParseSessionToken(tokenString)
	assert.NoError(t, err)
}
