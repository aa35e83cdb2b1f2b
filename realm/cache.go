package realm

import (
	"crypto/hmac"
	"sync"
	"time"
)

type (
	fingerprint [32]byte

	credEntry struct {
		fp       fingerprint
		deadline time.Time
	}

	groupEntry struct {
		groups   []string
		deadline time.Time
	}

	// cache holds the credential and group maps behind one mutex. Expiry is
	// lazy: the deadline lives inside the entry and every read checks it, so
	// a sweep racing with a newer write for the same key can never destroy
	// the newer entry (the newer entry carries its own, later deadline).
	// Reads never extend a deadline; only writes set it.
	cache struct {
		mu     sync.Mutex
		now    func() time.Time
		creds  map[string]credEntry
		groups map[string]groupEntry
	}
)

func newCache(now func() time.Time) *cache {
	if now == nil {
		now = time.Now
	}
	return &cache{
		now:    now,
		creds:  make(map[string]credEntry),
		groups: make(map[string]groupEntry),
	}
}

// credential reports whether an unexpired entry for dn exists with exactly
// this fingerprint. A present-but-mismatching fingerprint is a miss, not a
// rejection: the caller must fall through to a live bind.
func (c *cache) credential(dn string, fp fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.creds[dn]
	if !ok || !entry.deadline.After(c.now()) {
		return false
	}
	return hmac.Equal(entry.fp[:], fp[:])
}

// storeCredential replaces the entry for dn wholesale with a fresh deadline.
func (c *cache) storeCredential(dn string, fp fingerprint, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds[dn] = credEntry{fp: fp, deadline: c.now().Add(ttl)}
}

// groupSet returns the cached group set for dn. The second return value
// distinguishes a cached empty set ("this user has no groups") from a miss
// ("not resolved yet").
func (c *cache) groupSet(dn string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.groups[dn]
	if !ok || !entry.deadline.After(c.now()) {
		return nil, false
	}
	return entry.groups, true
}

func (c *cache) storeGroupSet(dn string, groups []string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[dn] = groupEntry{groups: groups, deadline: c.now().Add(ttl)}
}

// sweep reclaims memory from entries whose deadline has passed. Correctness
// never depends on it running: reads already treat expired entries as
// absent.
func (c *cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for dn, entry := range c.creds {
		if !entry.deadline.After(now) {
			delete(c.creds, dn)
		}
	}
	for dn, entry := range c.groups {
		if !entry.deadline.After(now) {
			delete(c.groups, dn)
		}
	}
}

func (c *cache) sizes() (creds, groups int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.creds), len(c.groups)
}
