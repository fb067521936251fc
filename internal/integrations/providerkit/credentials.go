// Package providerkit is the shared plumbing of the provider adapters:
// cached OAuth credentials with single-flight refresh, an HTTP client
// with a bounded retry policy, and tolerant response-field extraction
// for providers whose schemas drift.
package providerkit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Credentials is one provider's cached token set.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the access token can still be used at now.
func (c Credentials) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Authenticator performs the provider's auth flows. Refresh may return
// an error for providers that do not issue refresh tokens; the cache
// falls back to Authenticate.
type Authenticator interface {
	Authenticate(ctx context.Context) (Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

// CredentialCache holds one provider's credentials for the process
// lifetime. Concurrent callers needing a token share a single
// authentication flight instead of each hitting the provider.
type CredentialCache struct {
	mu    sync.Mutex
	creds Credentials
	sf    singleflight.Group
	now   func() time.Time
}

func NewCredentialCache() *CredentialCache {
	return &CredentialCache{now: time.Now}
}

// Token returns a usable access token, authenticating through auth when
// the cached one is absent or expired. A refresh token is tried first;
// refresh failure falls back to full authentication.
func (c *CredentialCache) Token(ctx context.Context, auth Authenticator) (string, error) {
	c.mu.Lock()
	creds := c.creds
	c.mu.Unlock()
	if creds.Valid(c.now()) {
		return creds.AccessToken, nil
	}

	v, err, _ := c.sf.Do("token", func() (any, error) {
		c.mu.Lock()
		creds := c.creds
		c.mu.Unlock()
		// Кто-то мог успеть обновить, пока мы ждали.
		if creds.Valid(c.now()) {
			return creds.AccessToken, nil
		}

		fresh, err := c.renew(ctx, auth, creds.RefreshToken)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.creds = fresh
		c.mu.Unlock()
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *CredentialCache) renew(ctx context.Context, auth Authenticator, refreshToken string) (Credentials, error) {
	if refreshToken != "" {
		creds, err := auth.Refresh(ctx, refreshToken)
		if err == nil {
			return creds, nil
		}
	}
	return auth.Authenticate(ctx)
}

// Reset drops the cached credentials, forcing the next Token call to
// re-authenticate.
func (c *CredentialCache) Reset() {
	c.mu.Lock()
	c.creds = Credentials{}
	c.mu.Unlock()
}
