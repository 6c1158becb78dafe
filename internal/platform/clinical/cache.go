package clinical

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type cachedName struct {
	name string
	ok   bool
}

// CachedLookup memoizes a NameLookup, including misses. Errors are not
// cached.
type CachedLookup struct {
	next  NameLookup
	cache *gocache.Cache
}

func NewCachedLookup(next NameLookup, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedLookup) DisplayName(ctx context.Context, kind Kind, id string) (string, bool, error) {
	key := string(kind) + ":" + id
	if v, found := c.cache.Get(key); found {
		hit := v.(cachedName)
		return hit.name, hit.ok, nil
	}
	name, ok, err := c.next.DisplayName(ctx, kind, id)
	if err != nil {
		return "", false, err
	}
	c.cache.SetDefault(key, cachedName{name: name, ok: ok})
	return name, ok, nil
}
