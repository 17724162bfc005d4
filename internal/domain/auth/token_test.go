package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-relay-go/internal/platform/errors"
)

func TestAuthToken_RoundTrip(t *testing.T) {
	at := NewAuthToken("secret")

	token, err := at.GenerateToken("dashboard")
	require.NoError(t, err)

	clientID, err := at.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", clientID)
}

func TestAuthToken_RejectsWrongSecret(t *testing.T) {
	token, err := NewAuthToken("secret").GenerateToken("dashboard")
	require.NoError(t, err)

	_, err = NewAuthToken("other").VerifyToken(token)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindAuth))
}

func TestAuthToken_Expired(t *testing.T) {
	at := NewAuthToken("secret").WithTTL(time.Minute)
	issued := time.Now().Add(-time.Hour)
	at.now = func() time.Time { return issued }

	token, err := at.GenerateToken("dashboard")
	require.NoError(t, err)

	at.now = time.Now
	_, err = at.VerifyToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAuthToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := TokenClaims{ClientID: "dashboard"}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewAuthToken("secret").VerifyToken(unsigned)
	assert.Error(t, err)
}

func TestAuthToken_Guards(t *testing.T) {
	var nilToken *AuthToken
	_, err := nilToken.GenerateToken("x")
	assert.Error(t, err)

	_, err = NewAuthToken("").GenerateToken("x")
	assert.Error(t, err)

	_, err = NewAuthToken("secret").GenerateToken("")
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = NewAuthToken("secret").VerifyToken("not-a-token")
	assert.True(t, errors.IsKind(err, errors.KindAuth))
}
