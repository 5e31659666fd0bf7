package session

import "sync"

// TokenCache is the single slot holding the last known anti-forgery token.
// Get falls back to the cookie mirror when nothing has been cached, because
// the token may arrive in a response body separate from the cookie.
type TokenCache struct {
	mu       sync.RWMutex
	token    string
	fallback func() string
}

func NewTokenCache(fallback func() string) *TokenCache {
	return &TokenCache{fallback: fallback}
}

func (c *TokenCache) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *TokenCache) Get() string {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" || c.fallback == nil {
		return token
	}
	return c.fallback()
}

// Cached returns the slot content without the cookie fallback.
func (c *TokenCache) Cached() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *TokenCache) Clear() {
	c.Set("")
}
