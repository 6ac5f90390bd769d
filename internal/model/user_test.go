package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "User@Example.COM", want: "user@example.com"},
		{in: "  user@example.com  ", want: "user@example.com"},
		{in: "user@example.com", want: "user@example.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEmail(tt.in))
	}
}

func TestUser_Identity_OmitsPasswordHash(t *testing.T) {
	hash := "$2a$12$hash"
	verifiedAt := time.Now()
	u := User{
		ID:              uuid.New(),
		Email:           "user@example.com",
		Name:            "User",
		Image:           "https://example.com/a.png",
		PasswordHash:    &hash,
		EmailVerifiedAt: &verifiedAt,
	}

	identity := u.Identity()

	assert.Equal(t, u.ID, identity.ID)
	assert.Equal(t, u.Email, identity.Email)
	assert.Equal(t, u.Name, identity.Name)
	assert.Equal(t, u.Image, identity.Image)
	assert.Equal(t, u.EmailVerifiedAt, identity.EmailVerifiedAt)
}

func TestResetIdentifier(t *testing.T) {
	assert.Equal(t, "reset:user@example.com", ResetIdentifier("user@example.com"))
}
