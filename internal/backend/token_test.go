package backend

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseServiceToken(t *testing.T, token, secret string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, "JWT", parsed.Header["typ"])
	return claims
}

func TestServiceTokenClaims(t *testing.T) {
	p := NewServiceTokenProvider(ServiceTokenConfig{
		Secret:   "s3cret",
		Issuer:   "quote-orchestrator",
		Audience: "ri-backend",
		Roles:    []string{"service", " admin "},
		TTL:      10 * time.Minute,
	})

	token, err := p.Token(context.Background())
	require.NoError(t, err)

	claims := parseServiceToken(t, token, "s3cret")
	assert.Equal(t, DefaultServiceSubject, claims["sub"])
	assert.Equal(t, "quote-orchestrator", claims["iss"])
	assert.Equal(t, []any{"ri-backend"}, claims["aud"])
	assert.Equal(t, []any{"service", "admin"}, claims["roles"])
	assert.Equal(t, "service", claims["role"])

	iat, ok := claims["iat"].(float64)
	require.True(t, ok)
	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 600, exp-iat, 1e-9)
}

func TestServiceTokenOptionalClaimsOmitted(t *testing.T) {
	p := NewServiceTokenProvider(ServiceTokenConfig{Secret: "s3cret", Subject: "worker"})
	token, err := p.Token(context.Background())
	require.NoError(t, err)

	claims := parseServiceToken(t, token, "s3cret")
	assert.Equal(t, "worker", claims["sub"])
	assert.NotContains(t, claims, "iss")
	assert.NotContains(t, claims, "aud")
	assert.NotContains(t, claims, "roles")
	assert.NotContains(t, claims, "role")
}

func TestServiceTokenCachingAndRefresh(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewServiceTokenProvider(ServiceTokenConfig{Secret: "s3cret", TTL: time.Second})
	p.now = func() time.Time { return now }
	assert.Equal(t, minTokenTTL, p.ttl)

	first, err := p.Token(context.Background())
	require.NoError(t, err)

	now = now.Add(29 * time.Second)
	same, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, same)

	now = now.Add(2 * time.Second)
	fresh, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, fresh)
}

func TestServiceTokenRequiresSecret(t *testing.T) {
	_, err := NewServiceTokenProvider(ServiceTokenConfig{}).Token(context.Background())
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}
