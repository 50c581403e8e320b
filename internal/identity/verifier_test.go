package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sediment-analysis-backend/internal/identity"
)

const testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)
	tokenString := signToken(t, testSecret, jwt.MapClaims{"sub": "doctor-123"})

	doctorID, err := v.Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "doctor-123", doctorID)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)
	tokenString := signToken(t, "some-other-secret", jwt.MapClaims{"sub": "doctor-123"})

	_, err := v.Verify(tokenString)
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"sub": "doctor-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(tokenString)
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestJWTVerifier_MissingSub(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)
	tokenString := signToken(t, testSecret, jwt.MapClaims{"role": "authenticated"})

	_, err := v.Verify(tokenString)
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestJWTVerifier_Garbage(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)

	_, err := v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}
