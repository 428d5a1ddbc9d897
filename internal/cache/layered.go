package cache

import "time"

// LayeredCache reads through a fast layer into a slow one and writes to both
type LayeredCache struct {
	fast Cache
	slow Cache
}

// NewLayeredCache stacks fast (usually memory) over slow (usually disk)
func NewLayeredCache(fast, slow Cache) *LayeredCache {
	return &LayeredCache{
		fast: fast,
		slow: slow,
	}
}

// Get checks the fast layer first and promotes slow-layer hits
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.fast.Get(key); found {
		return val, true
	}

	if val, found := c.slow.Get(key); found {
		_ = c.fast.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores the value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.fast.Set(key, value, ttl); err != nil {
		return err
	}
	return c.slow.Set(key, value, ttl)
}

// Delete removes the value from both layers
func (c *LayeredCache) Delete(key string) error {
	errFast := c.fast.Delete(key)
	if err := c.slow.Delete(key); err != nil {
		return err
	}
	return errFast
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	errFast := c.fast.Clear()
	if err := c.slow.Clear(); err != nil {
		return err
	}
	return errFast
}
