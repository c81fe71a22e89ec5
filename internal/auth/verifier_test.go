package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("unit-test-secret")

	token, err := v.Sign(42, time.Minute)
	require.NoError(t, err)

	userID, err := v.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").Sign(42, time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").UserID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("unit-test-secret")

	token, err := v.Sign(42, -time.Minute)
	require.NoError(t, err)

	_, err = v.UserID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsGarbage(t *testing.T) {
	v := NewVerifier("unit-test-secret")

	_, err := v.UserID("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.UserID("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsNonNumericSubject(t *testing.T) {
	secret := []byte("unit-test-secret")
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = NewVerifier("unit-test-secret").UserID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsUnsignedToken(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewVerifier("unit-test-secret").UserID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
