package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	minTokenTTL    = 60 * time.Second
	tokenRefreshAt = 30 * time.Second

	DefaultServiceSubject = "ri-orchestrator"
)

// ErrMissingSecret is returned when a service token must be minted without a signing secret.
var ErrMissingSecret = errors.New("service token secret not configured")

// TokenSource supplies the bearer token attached to every backend call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed, externally issued token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// ServiceTokenConfig describes the locally minted service token.
type ServiceTokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Subject  string
	Roles    []string
	TTL      time.Duration
}

// ServiceTokenProvider mints HS256 tokens and reuses them until shortly before expiry.
type ServiceTokenProvider struct {
	secret   []byte
	issuer   string
	audience string
	subject  string
	roles    []string
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cached string
	expiry time.Time
}

// NewServiceTokenProvider applies defaults: subject ri-orchestrator, one hour TTL, never under a minute.
func NewServiceTokenProvider(cfg ServiceTokenConfig) *ServiceTokenProvider {
	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		subject = DefaultServiceSubject
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	if ttl < minTokenTTL {
		ttl = minTokenTTL
	}
	roles := make([]string, 0, len(cfg.Roles))
	for _, r := range cfg.Roles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return &ServiceTokenProvider{
		secret:   []byte(cfg.Secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		subject:  subject,
		roles:    roles,
		ttl:      ttl,
		now:      time.Now,
	}
}

type serviceClaims struct {
	Roles []string `json:"roles,omitempty"`
	Role  string   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Token returns the cached token or mints a new one when it expires within 30 seconds.
func (p *ServiceTokenProvider) Token(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().Truncate(time.Second)
	if p.cached != "" && now.Before(p.expiry.Add(-tokenRefreshAt)) {
		return p.cached, nil
	}
	if len(p.secret) == 0 {
		return "", ErrMissingSecret
	}

	exp := now.Add(p.ttl)
	claims := serviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.subject,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if p.audience != "" {
		claims.Audience = jwt.ClaimStrings{p.audience}
	}
	if len(p.roles) > 0 {
		claims.Roles = p.roles
		claims.Role = p.roles[0]
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	p.cached = signed
	p.expiry = exp
	return signed, nil
}
