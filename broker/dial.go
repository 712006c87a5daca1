package broker

import (
	"context"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonwraymond/resilientmq/resilience"
)

// DialConfig describes how to establish one AMQP connection: the candidate
// URLs to try, and the resilience patterns guarding the dial attempt
// itself — distinct from the per-operation resilience.Resource a
// Connection wraps once established.
type DialConfig struct {
	// URLs is tried in order on every dial attempt. Each entry may itself
	// be an "env:NAME" reference resolving to a full amqp(s):// DSN.
	URLs []string

	// Credentials, if set, overrides the resolved URL's password component
	// with the provider's OAuth2 token on every dial attempt; the provider
	// reuses its cached token until it is within leeway of expiring.
	Credentials *CredentialsProvider

	AMQPConfig amqp.Config

	RateLimit   resilience.RateLimiterConfig
	AuthBreaker resilience.CircuitBreakerConfig
	// Policy bounds the dial retry loop the same way it would bound any
	// resilience.Resource invocation: MaxAttempts/MaxDuration == 0 means
	// retry until the supervisor gives up some other way.
	Policy      resilience.Policy
	DialTimeout time.Duration
}

// Dialer establishes AMQP connections per DialConfig, running each attempt
// through a dialGuard: rate limiter, authentication-failure circuit
// breaker, retry, and a per-attempt timeout.
type Dialer struct {
	cfg   DialConfig
	guard *dialGuard
}

// NewDialer constructs a Dialer from cfg, wiring the authentication circuit
// breaker's failure predicate to the broker's own error classification.
func NewDialer(cfg DialConfig) *Dialer {
	breaker := cfg.AuthBreaker
	breaker.IsFailure = isAuthFailure

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	guard := newDialGuard(cfg.RateLimit, breaker, cfg.Policy, timeout)
	return &Dialer{cfg: cfg, guard: guard}
}

// Dial runs the dial pipeline and returns the first connection established
// against any candidate URL.
func (d *Dialer) Dial(ctx context.Context) (*amqp.Connection, error) {
	if len(d.cfg.URLs) == 0 {
		return nil, ErrNoCredentials
	}

	var conn *amqp.Connection
	err := d.guard.run(ctx, func(ctx context.Context) error {
		established, dialErr := d.dialOnce(ctx)
		if dialErr != nil {
			return dialErr
		}
		conn = established
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDialFailed, err)
	}
	return conn, nil
}

func (d *Dialer) dialOnce(ctx context.Context) (*amqp.Connection, error) {
	var lastErr error
	for _, candidate := range d.cfg.URLs {
		resolved, err := resolveDSN(candidate)
		if err != nil {
			lastErr = err
			continue
		}

		resolved, err = d.withCredentials(ctx, resolved)
		if err != nil {
			lastErr = err
			continue
		}

		conn, err := amqp.DialConfig(resolved, d.cfg.AMQPConfig)
		if err != nil {
			lastErr = err
			continue
		}
		return conn, nil
	}
	if lastErr == nil {
		lastErr = ErrDialFailed
	}
	return nil, lastErr
}

func (d *Dialer) withCredentials(ctx context.Context, rawURL string) (string, error) {
	if d.cfg.Credentials == nil {
		return rawURL, nil
	}
	token, err := d.cfg.Credentials.Password(ctx)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.User = url.UserPassword(u.User.Username(), token)
	return u.String(), nil
}

// isAuthFailure reports whether err is the kind of failure the dial
// pipeline's circuit breaker should count — an ACCESS-REFUSED closure, not
// a transient network error the retry stage alone should absorb.
func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Kind == resilience.KindAuthentication
}
