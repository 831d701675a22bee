package ledger

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultRegistrySize = 512

// Registry keeps the most recent entries in memory for lookups by request id.
type Registry struct {
	cache *lru.Cache[string, Entry]
}

func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		size = defaultRegistrySize
	}
	cache, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create request registry: %w", err)
	}
	return &Registry{cache: cache}, nil
}

func (r *Registry) Put(e Entry) {
	e.Inputs = append([]string(nil), e.Inputs...)
	r.cache.Add(e.RequestID, e)
}

func (r *Registry) Get(id string) (Entry, bool) {
	e, ok := r.cache.Get(id)
	if !ok {
		return Entry{}, false
	}
	e.Inputs = append([]string(nil), e.Inputs...)
	return e, true
}

func (r *Registry) Len() int {
	return r.cache.Len()
}
