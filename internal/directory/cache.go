package directory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"dispatch-service/internal/models"
)

// Cached wraps a Directory with a short-lived cache of GetParty results.
// Category queries and writes always go to the underlying store; an upsert
// evicts the cached record for that id.
type Cached struct {
	Directory
	cache *gocache.Cache
}

// NewCached caches party lookups for ttl.
func NewCached(dir Directory, ttl time.Duration) *Cached {
	return &Cached{
		Directory: dir,
		cache:     gocache.New(ttl, 2*ttl),
	}
}

func (c *Cached) GetParty(ctx context.Context, id string) (models.Party, error) {
	if v, found := c.cache.Get(id); found {
		return copyParty(v.(models.Party)), nil
	}
	p, err := c.Directory.GetParty(ctx, id)
	if err != nil {
		return models.Party{}, err
	}
	c.cache.SetDefault(id, copyParty(p))
	return p, nil
}

func (c *Cached) UpsertParty(ctx context.Context, id string, fields models.PartyUpdate) error {
	defer c.cache.Delete(id)
	return c.Directory.UpsertParty(ctx, id, fields)
}
