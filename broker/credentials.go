package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource produces an OAuth2 access token suitable for use as an AMQP
// password, per the RabbitMQ OAuth2 plugin's convention of treating the
// token itself as the SASL password.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// CredentialsProvider caches a TokenSource's token until it's within leeway
// of expiring, then fetches a fresh one. The broker never validates the
// token's signature — the server does that — it only reads the exp claim to
// decide when to refresh.
type CredentialsProvider struct {
	source TokenSource
	leeway time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewCredentialsProvider constructs a provider that refreshes its token
// leeway before the previous one's expiry. A non-positive leeway disables
// the early-refresh margin; the token is still refetched once truly
// expired.
func NewCredentialsProvider(source TokenSource, leeway time.Duration) *CredentialsProvider {
	if leeway < 0 {
		leeway = 0
	}
	return &CredentialsProvider{source: source, leeway: leeway}
}

// Password returns the current token, refreshing it first if it has none
// cached or the cached one is within leeway of expiring.
func (c *CredentialsProvider) Password(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.expires) > c.leeway {
		return c.token, nil
	}

	token, err := c.source.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("broker: fetch token: %w", err)
	}

	expiry, err := tokenExpiry(token)
	if err != nil {
		return "", fmt.Errorf("broker: read token expiry: %w", err)
	}

	c.token = token
	c.expires = expiry
	return c.token, nil
}

// tokenExpiry reads a JWT's exp claim without verifying its signature — the
// broker server is the party that verifies this token, not this client.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("broker: token carries no exp claim")
	}
	return exp.Time, nil
}
