package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndDecodeScopes(t *testing.T) {
	tokens := newTestTokens(t)

	cases := []struct {
		scope string
		issue func(string, ...IssueOption) (string, error)
		ttl   time.Duration
	}{
		{ScopeAccess, tokens.IssueAccessToken, 15 * time.Minute},
		{ScopeRefresh, tokens.IssueRefreshToken, 7 * 24 * time.Hour},
		{ScopeEmail, tokens.IssueEmailToken, 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.scope, func(t *testing.T) {
			token, err := tc.issue("user@example.com")
			require.NoError(t, err)

			claims, err := tokens.Decode(token)
			require.NoError(t, err)
			assert.Equal(t, "user@example.com", claims.Subject)
			assert.Equal(t, tc.scope, claims.Scope)
			assert.NotEmpty(t, claims.ID)
			assert.Equal(t, tc.ttl, claims.ExpiresAt.Sub(claims.IssuedAt))
		})
	}
}

func TestTokensIssuedInSameSecondDiffer(t *testing.T) {
	tokens := newTestTokens(t)
	fixed := time.Now()
	tokens.nowFunc = func() time.Time { return fixed }

	a, err := tokens.IssueRefreshToken("user@example.com")
	require.NoError(t, err)
	b, err := tokens.IssueRefreshToken("user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWithExpiryOverridesDefault(t *testing.T) {
	tokens := newTestTokens(t)

	token, err := tokens.IssueAccessToken("user@example.com", WithExpiry(time.Minute))
	require.NoError(t, err)
	claims, err := tokens.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt))

	token, err = tokens.IssueAccessToken("user@example.com", WithExpiry(0))
	require.NoError(t, err)
	claims, err = tokens.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt))
}

func TestDecodeRejectsExpiredToken(t *testing.T) {
	tokens := newTestTokens(t)
	issuedAt := time.Now().Add(-time.Hour)
	tokens.nowFunc = func() time.Time { return issuedAt }

	token, err := tokens.IssueAccessToken("user@example.com")
	require.NoError(t, err)

	tokens.nowFunc = func() time.Time { return issuedAt.Add(16 * time.Minute) }
	_, err = tokens.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeRejectsForeignSignature(t *testing.T) {
	tokens := newTestTokens(t)
	other := testAuthConfig()
	other.SecretKey = "another-secret"
	foreign, err := NewTokenService(other)
	require.NoError(t, err)

	token, err := foreign.IssueAccessToken("user@example.com")
	require.NoError(t, err)

	_, err = tokens.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeRejectsUnsignedAndMalformed(t *testing.T) {
	tokens := newTestTokens(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":   "user@example.com",
		"scope": ScopeAccess,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for _, token := range []string{raw, "", "not-a-jwt", "a.b.c"} {
		_, err := tokens.Decode(token)
		assert.True(t, errors.Is(err, ErrInvalidToken), "token %q should be rejected", token)
	}
}

func TestDecodeRequiresExpiry(t *testing.T) {
	tokens := newTestTokens(t)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user@example.com",
		"scope": ScopeAccess,
	}).SignedString([]byte(testAuthConfig().SecretKey))
	require.NoError(t, err)

	_, err = tokens.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeScopedMismatch(t *testing.T) {
	tokens := newTestTokens(t)

	token, err := tokens.IssueEmailToken("user@example.com")
	require.NoError(t, err)

	_, err = tokens.DecodeScoped(token, ScopeAccess)
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestNewTokenServiceRejectsAsymmetricAlgorithm(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Algorithm = "RS256"
	_, err := NewTokenService(cfg)
	assert.Error(t, err)

	cfg = testAuthConfig()
	cfg.SecretKey = " "
	_, err = NewTokenService(cfg)
	assert.Error(t, err)
}

func TestIssueRequiresSubject(t *testing.T) {
	tokens := newTestTokens(t)
	_, err := tokens.IssueAccessToken("")
	assert.Error(t, err)
}
