package media

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// LocalRefPrefix marks a placeholder URL that points at bytes held in memory.
const LocalRefPrefix = "blob:"

// BlobCache keeps the bytes behind placeholder references until their upload
// succeeds or the entry expires.
type BlobCache struct {
	cache *cache.Cache
}

func NewBlobCache(ttl time.Duration) *BlobCache {
	return &BlobCache{cache: cache.New(ttl, ttl/2)}
}

// Put stores f and returns a fresh local reference for it.
func (c *BlobCache) Put(f File) string {
	ref := LocalRefPrefix + uuid.NewString()
	c.cache.Set(ref, f, cache.DefaultExpiration)
	return ref
}

func (c *BlobCache) Get(ref string) (File, bool) {
	if x, found := c.cache.Get(ref); found {
		return x.(File), true
	}
	return File{}, false
}

func (c *BlobCache) Delete(ref string) {
	c.cache.Delete(ref)
}

func (c *BlobCache) Len() int {
	return c.cache.ItemCount()
}
