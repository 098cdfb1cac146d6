package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simulacro-api/internal/models"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
)

func newTestTokenService(secret string) *TokenService {
	return NewTokenService(nil, TokenConfig{Secret: secret, Issuer: "simulacro-api", Expiry: time.Hour})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService("secret")

	token, expiresAt, err := svc.IssueToken(TokenRequest{UserID: "u-1", Role: "coordinator", InstitutionID: "inst-a"})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleCoordinator, claims.Role)
	assert.Equal(t, "inst-a", claims.InstitutionID)
}

func TestTokenRejectsForeignSignature(t *testing.T) {
	token, _, err := newTestTokenService("secret").IssueToken(TokenRequest{UserID: "u-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = newTestTokenService("other").ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenRejectsExpired(t *testing.T) {
	svc := newTestTokenService("secret")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.IssueToken(TokenRequest{UserID: "u-1", Role: models.RoleTeacher})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestIssueTokenValidation(t *testing.T) {
	svc := newTestTokenService("secret")

	_, _, err := svc.IssueToken(TokenRequest{UserID: "u-1", Role: "janitor"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.IssueToken(TokenRequest{Role: models.RoleAdmin})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
