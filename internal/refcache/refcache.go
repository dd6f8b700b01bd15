// Package refcache memoizes loaded reference bundles per (sex, source) key.
// Concurrent requests for one key share a single load, successful loads are
// kept for the process lifetime, and failures are forgotten so a later call
// can retry.
package refcache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/percentile-data/growth.report/internal/refdata"
)

// LoaderFunc produces the bundle for one (sex, source) pair.
type LoaderFunc func(sex refdata.Sex, source refdata.Source) (*refdata.Bundle, error)

// Cache memoizes reference bundles. Construct with New; the zero value has
// no loader and is unusable.
type Cache struct {
	loader LoaderFunc

	group singleflight.Group

	mu      sync.RWMutex
	bundles map[string]*refdata.Bundle
}

// New builds a cache around loader. Production callers pass
// refdata.LoadBundle to serve the embedded tables; tests inject their own
// loader to observe load counts and inject failures.
func New(loader LoaderFunc) *Cache {
	return &Cache{
		loader:  loader,
		bundles: make(map[string]*refdata.Bundle),
	}
}

// Load returns the bundle for (sex, source), loading it at most once.
// Concurrent callers for the same key share one underlying load and all
// receive the same bundle pointer. A failed load leaves nothing behind, so
// the next call retries.
func (c *Cache) Load(sex refdata.Sex, source refdata.Source) (*refdata.Bundle, error) {
	key := refdata.Key(sex, source)

	c.mu.RLock()
	bundle, ok := c.bundles[key]
	c.mu.RUnlock()
	if ok {
		return bundle, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		loaded, err := c.loader(sex, source)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.bundles[key] = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*refdata.Bundle), nil
}

// Preload warms every (sex, source) combination shipped with the binary.
func (c *Cache) Preload() error {
	for _, sex := range []refdata.Sex{refdata.SexBoys, refdata.SexGirls} {
		for _, source := range []refdata.Source{refdata.SourceWHO, refdata.SourceCDC, refdata.SourceFenton} {
			if _, err := c.Load(sex, source); err != nil {
				return fmt.Errorf("failed to preload %s: %w", refdata.Key(sex, source), err)
			}
		}
	}
	return nil
}

// Size reports how many bundles are currently cached.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bundles)
}
