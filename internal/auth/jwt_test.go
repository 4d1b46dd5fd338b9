package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socionet/backend/internal/models"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	u := &models.User{ID: uuid.New(), Email: "a@example.com", Role: models.RoleAdvanced, Status: models.StatusApproved}

	token, err := svc.Generate(u)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleAdvanced, claims.Role)
	assert.Equal(t, models.StatusApproved, claims.Status)
	assert.Equal(t, time.Hour, svc.TTL())
}

func TestJWT_Rejects(t *testing.T) {
	svc := NewJWTService("secret", 1)
	u := &models.User{ID: uuid.New(), Role: models.RoleBeginner}

	other, err := NewJWTService("other", 1).Generate(u)
	require.NoError(t, err)
	_, err = svc.Validate(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTService_DefaultTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, NewJWTService("s", 0).TTL())
}
