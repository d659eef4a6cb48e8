package secrets

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// secretCache keeps fetched secrets for ttl so hot paths do not hit the backend
type secretCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	enabled bool
	ttl     time.Duration
	clock   clockz.Clock
}

type cacheEntry struct {
	secret    *Secret
	expiresAt time.Time
}

func newSecretCache(enabled bool, ttl time.Duration, clock clockz.Clock) *secretCache {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &secretCache{
		entries: make(map[string]cacheEntry),
		enabled: enabled && ttl > 0,
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *secretCache) get(key string) *Secret {
	if !c.enabled {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.secret
}

func (c *secretCache) set(key string, secret *Secret) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{secret: secret, expiresAt: c.clock.Now().Add(c.ttl)}
}
