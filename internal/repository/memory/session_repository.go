package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live values keyed by id and expires them after a period
// without access. The eviction callback runs for expired and deleted entries alike.
type SessionRepository[T any] struct {
	cache *cache.Cache
}

func NewSessionRepository[T any](ttl time.Duration, onEvict func(id string, v T)) *SessionRepository[T] {
	c := cache.New(ttl, ttl/2)
	if onEvict != nil {
		c.OnEvicted(func(id string, x interface{}) {
			if v, ok := x.(T); ok {
				onEvict(id, v)
			}
		})
	}
	return &SessionRepository[T]{
		cache: c,
	}
}

func (r *SessionRepository[T]) Save(id string, v T) {
	r.cache.Set(id, v, cache.DefaultExpiration)
}

// Get returns the value and extends its lifetime.
func (r *SessionRepository[T]) Get(id string) (T, bool) {
	x, found := r.cache.Get(id)
	if !found {
		var zero T
		return zero, false
	}
	v := x.(T)
	r.cache.Set(id, v, cache.DefaultExpiration)
	return v, true
}

// GetOrCreate returns the stored value, or creates and stores one. The second result
// reports whether a new value was created.
func (r *SessionRepository[T]) GetOrCreate(id string, create func() (T, error)) (T, bool, error) {
	if v, ok := r.Get(id); ok {
		return v, false, nil
	}
	v, err := create()
	if err != nil {
		var zero T
		return zero, false, err
	}
	if err := r.cache.Add(id, v, cache.DefaultExpiration); err != nil {
		// lost a race with another creator; keep theirs
		if existing, ok := r.Get(id); ok {
			return existing, false, nil
		}
		r.cache.Set(id, v, cache.DefaultExpiration)
	}
	return v, true, nil
}

func (r *SessionRepository[T]) Delete(id string) {
	r.cache.Delete(id)
}

func (r *SessionRepository[T]) Len() int {
	return r.cache.ItemCount()
}

// Flush evicts every entry, running the eviction callback for each.
func (r *SessionRepository[T]) Flush() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}
