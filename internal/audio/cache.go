package audio

import "sync"

// Cache maps text to its decoded speech for the lifetime of a session.
// Keys are the exact text that was spoken.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*Buffer
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{items: make(map[string]*Buffer)}
}

// Get returns the cached buffer for text
func (c *Cache) Get(text string) (*Buffer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.items[text]
	return b, ok
}

// Put stores the buffer for text
func (c *Cache) Put(text string, b *Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[text] = b
}

// Len returns the number of cached texts
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Missing returns the distinct texts that are not cached, in input order
func (c *Cache) Missing(texts []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var missing []string
	for _, t := range texts {
		if seen[t] {
			continue
		}
		seen[t] = true
		if _, ok := c.items[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}
