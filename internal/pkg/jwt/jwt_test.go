package jwt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "1h")

	token, expiresAt, err := svc.GenerateAccessToken("user-1", "company-1", auth.RoleOwner)
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	parsed, err := jwtauth.VerifyToken(svc.JWTAuth(), token)
	require.NoError(t, err)

	claims, err := parsed.AsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "company-1", claims["company_id"])
	assert.Equal(t, "owner", claims["role"])
	assert.Equal(t, "access", claims["type"])
}

func TestGenerateAccessToken_Errors(t *testing.T) {
	_, _, err := NewJWTService("secret", "1h").GenerateAccessToken("u", "c", auth.Role("admin"))
	assert.True(t, errors.Is(err, auth.ErrInvalidRole))

	_, _, err = NewJWTService("secret", "soon").GenerateAccessToken("u", "c", auth.RoleManager)
	assert.Error(t, err)
}

func TestVerifyToken_RejectsOtherSecret(t *testing.T) {
	token, _, err := NewJWTService("secret", "1h").GenerateAccessToken("u", "c", auth.RoleManager)
	require.NoError(t, err)

	_, err = jwtauth.VerifyToken(NewJWTService("other", "1h").JWTAuth(), token)
	assert.Error(t, err)
}
