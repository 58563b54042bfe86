package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager(secret, time.Hour)
	token, expires, err := tm.GenerateAccessToken("desk", RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "desk", claims.Username)
	assert.True(t, claims.IsAdmin())

	_, err = NewTokenManager("another-secret-another-secret-xx", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager(secret, time.Minute).(*tokenManager)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateAccessToken("desk", RoleOperator)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := OperatorClaims{Username: "desk", Type: TokenTypeAccess}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager(secret, time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("desk-password"), bcrypt.MinCost)
	require.NoError(t, err)

	tm := NewTokenManager(secret, time.Hour)
	auth := NewAuthenticator([]Operator{{Username: "desk", PasswordHash: string(hash), Role: RoleOperator}}, tm, 60, 3)

	token, _, err := auth.Login("10.0.0.1", "desk", "desk-password")
	require.NoError(t, err)
	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleOperator, claims.Role)

	_, _, err = auth.Login("10.0.0.1", "desk", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login("10.0.0.1", "nobody", "desk-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// burst of 3 is spent
	_, _, err = auth.Login("10.0.0.1", "desk", "desk-password")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// other clients have their own budget
	_, _, err = auth.Login("10.0.0.2", "desk", "desk-password")
	assert.NoError(t, err)
}
