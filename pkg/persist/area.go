package persist

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// AreaCache resolves the default area id once and remembers it.
// Concurrent lookups share one resolver call. Failures are not cached, so
// the next write retries.
type AreaCache struct {
	resolver AreaResolver

	group singleflight.Group
	mu    sync.RWMutex
	ids   map[string]string
}

// NewAreaCache wraps resolver. A nil resolver always yields no area.
func NewAreaCache(resolver AreaResolver) *AreaCache {
	return &AreaCache{resolver: resolver, ids: make(map[string]string)}
}

// Resolve returns the cached area id for subjectID, resolving it if needed.
func (c *AreaCache) Resolve(ctx context.Context, subjectID string) (string, error) {
	if c.resolver == nil {
		return "", ErrNoResolver
	}

	c.mu.RLock()
	id, ok := c.ids[subjectID]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	v, err, _ := c.group.Do(subjectID, func() (any, error) {
		c.mu.RLock()
		id, ok := c.ids[subjectID]
		c.mu.RUnlock()
		if ok {
			return id, nil
		}

		id, err := c.resolver.ResolveArea(ctx, subjectID)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.ids[subjectID] = id
		c.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops every cached id, e.g. after the subject signs out.
func (c *AreaCache) Invalidate() {
	c.mu.Lock()
	c.ids = make(map[string]string)
	c.mu.Unlock()
}
