package broker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return token
}

type fakeTokenSource struct {
	calls int32
	token string
	err   error
}

func (f *fakeTokenSource) Token(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.token, f.err
}

func TestCredentialsProvider_FetchesOnFirstCall(t *testing.T) {
	src := &fakeTokenSource{token: signedToken(t, time.Now().Add(time.Hour))}
	p := NewCredentialsProvider(src, time.Minute)

	tok, err := p.Password(context.Background())
	if err != nil {
		t.Fatalf("Password() error = %v", err)
	}
	if tok != src.token {
		t.Errorf("Password() = %q, want %q", tok, src.token)
	}
	if src.calls != 1 {
		t.Errorf("Token() called %d times, want 1", src.calls)
	}
}

func TestCredentialsProvider_CachesUntilNearExpiry(t *testing.T) {
	src := &fakeTokenSource{token: signedToken(t, time.Now().Add(time.Hour))}
	p := NewCredentialsProvider(src, time.Minute)

	if _, err := p.Password(context.Background()); err != nil {
		t.Fatalf("Password() error = %v", err)
	}
	if _, err := p.Password(context.Background()); err != nil {
		t.Fatalf("Password() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("Token() called %d times, want 1 (cached well within leeway)", src.calls)
	}
}

func TestCredentialsProvider_RefreshesWithinLeeway(t *testing.T) {
	src := &fakeTokenSource{token: signedToken(t, time.Now().Add(30*time.Second))}
	p := NewCredentialsProvider(src, time.Minute)

	if _, err := p.Password(context.Background()); err != nil {
		t.Fatalf("Password() error = %v", err)
	}

	src.token = signedToken(t, time.Now().Add(time.Hour))
	tok, err := p.Password(context.Background())
	if err != nil {
		t.Fatalf("Password() error = %v", err)
	}
	if tok != src.token {
		t.Error("Password() did not return the refreshed token")
	}
	if src.calls != 2 {
		t.Errorf("Token() called %d times, want 2 (expiry within leeway forces refresh)", src.calls)
	}
}

func TestCredentialsProvider_PropagatesSourceError(t *testing.T) {
	sentinel := errors.New("token endpoint unreachable")
	src := &fakeTokenSource{err: sentinel}
	p := NewCredentialsProvider(src, time.Minute)

	_, err := p.Password(context.Background())
	if !errors.Is(err, sentinel) {
		t.Errorf("Password() error = %v, want wrapping %v", err, sentinel)
	}
}
