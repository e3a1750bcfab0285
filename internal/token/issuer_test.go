package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer(nil, time.Hour, "")
	assert.Error(t, err)

	_, err = NewIssuer([]byte{}, time.Hour, "")
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), time.Hour, "")
	require.NoError(t, err)

	validatedAt := time.Now().UTC().Truncate(time.Second)
	signed, err := issuer.Issue("https://api.example.com", validatedAt, "0.3")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", claims.Source)
	assert.Equal(t, "0.3", claims.SpecVersion)
	assert.Equal(t, validatedAt.Unix(), claims.ValidatedAt)
	assert.Equal(t, "agent-manifest-registry", claims.Issuer)
	assert.Equal(t, "https://api.example.com", claims.Subject)
	assert.Equal(t, validatedAt.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret-a"), time.Hour, "")
	require.NoError(t, err)
	other, err := NewIssuer([]byte("secret-b"), time.Hour, "")
	require.NoError(t, err)

	signed, err := issuer.Issue("https://api.example.com", time.Now(), "0.3")
	require.NoError(t, err)

	_, err = other.Verify(signed)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), time.Minute, "")
	require.NoError(t, err)

	signed, err := issuer.Issue("https://api.example.com", time.Now().Add(-2*time.Minute), "0.2")
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), time.Hour, "")
	require.NoError(t, err)

	// An unsigned token must never verify, whatever its claims say.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Source: "https://evil.example.com"})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(tokenString)
	assert.Error(t, err)
}

func TestDefaultValidityApplied(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), 0, "custom-issuer")
	require.NoError(t, err)

	now := time.Now()
	signed, err := issuer.Issue("src", now, "0.3")
	require.NoError(t, err)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "custom-issuer", claims.Issuer)
	assert.Equal(t, now.Add(DefaultValidity).Unix(), claims.ExpiresAt.Unix())
}
