package commerce

import (
	"sync"
	"time"
)

// DefaultTokenSkew is how long before expiry a cached token stops being used.
const DefaultTokenSkew = 30 * time.Second

// TokenCache holds one access token until shortly before it expires.
// It is safe for concurrent use.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	skew      time.Duration
	now       func() time.Time
}

// NewTokenCache creates an empty TokenCache. A token is treated as expired
// skew before its real expiry so in-flight requests never carry a stale one.
func NewTokenCache(skew time.Duration) *TokenCache {
	if skew < 0 {
		skew = 0
	}
	return &TokenCache{skew: skew, now: time.Now}
}

// Get returns the cached token if it is still usable.
func (c *TokenCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.now().Before(c.expiresAt.Add(-c.skew)) {
		return "", false
	}
	return c.token, true
}

// Set stores token for ttl.
func (c *TokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = c.now().Add(ttl)
}

// Invalidate drops the cached token, e.g. after the platform rejected it.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
