package addrcache

import (
	"time"

	"github.com/allegro/bigcache"

	"github.com/wacampaign/campaign-scheduler/pkg/logger"
)

// Cache remembers which candidate address the provider confirmed, so repeat
// sends skip the existence check until the entry expires.
type Cache struct {
	store *bigcache.BigCache
}

func New(ttl time.Duration) (*Cache, error) {
	store, err := bigcache.NewBigCache(bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

func (c *Cache) Lookup(candidate string) (string, bool) {
	entry, err := c.store.Get(candidate)
	if err != nil {
		if err != bigcache.ErrEntryNotFound {
			logger.Debugf("address cache lookup %s: %v", candidate, err)
		}
		return "", false
	}
	return string(entry), true
}

func (c *Cache) Remember(candidate, canonical string) {
	if err := c.store.Set(candidate, []byte(canonical)); err != nil {
		logger.Warnf("address cache store %s: %v", candidate, err)
	}
}

func (c *Cache) Len() int {
	return c.store.Len()
}
