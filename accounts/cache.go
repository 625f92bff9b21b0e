package accounts

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPasswordCacheSize bounds the number of cached passwords.
const DefaultPasswordCacheSize = 4096

// PasswordCache keeps the last accepted plaintext password per user so the
// relay can authenticate uploads. A nil *PasswordCache is a disabled cache:
// Put is a no-op and Get always misses.
//
// Users with a live session are pinned and never evicted; the LRU bound
// applies to users whose sessions have all ended.
type PasswordCache struct {
	cache *lru.Cache[string, string]

	mu     sync.Mutex
	pinned map[string]*pinnedPassword
}

type pinnedPassword struct {
	password string
	refs     int
}

// NewPasswordCache returns a cache holding at most size entries. The least
// recently used entry is evicted first.
func NewPasswordCache(size int) (*PasswordCache, error) {
	if size <= 0 {
		size = DefaultPasswordCacheSize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("accounts: password cache: %w", err)
	}
	return &PasswordCache{cache: c, pinned: make(map[string]*pinnedPassword)}, nil
}

// Enabled reports whether passwords are cached at all.
func (c *PasswordCache) Enabled() bool {
	return c != nil
}

// Put stores password for username, replacing any previous value.
func (c *PasswordCache) Put(username, password string) {
	if c == nil {
		return
	}
	c.cache.Add(username, password)

	c.mu.Lock()
	if p, ok := c.pinned[username]; ok {
		p.password = password
	}
	c.mu.Unlock()
}

// Pin stores password like Put and holds it until a matching Unpin. Pins
// are counted per user.
func (c *PasswordCache) Pin(username, password string) {
	if c == nil {
		return
	}
	c.cache.Add(username, password)

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pinned[username]
	if !ok {
		p = &pinnedPassword{}
		c.pinned[username] = p
	}
	p.password = password
	p.refs++
}

// Unpin drops one pin of username. The password stays in the LRU part until
// evicted.
func (c *PasswordCache) Unpin(username string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pinned[username]
	if !ok {
		return
	}
	if p.refs <= 1 {
		delete(c.pinned, username)
		return
	}
	p.refs--
}

// Pinned returns the number of users with at least one pin.
func (c *PasswordCache) Pinned() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pinned)
}

// Get returns the cached password for username.
func (c *PasswordCache) Get(username string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	p, ok := c.pinned[username]
	if ok {
		pw := p.password
		c.mu.Unlock()
		return pw, true
	}
	c.mu.Unlock()
	return c.cache.Get(username)
}

// Len returns the number of cached entries.
func (c *PasswordCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
