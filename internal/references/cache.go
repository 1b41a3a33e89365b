package references

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore keeps recently opened reference images in memory. Every remote
// fallback reads all references, so caching avoids re-reading them per frame.
type CachedStore struct {
	Store
	cache *lru.Cache[string, []byte]
}

// NewCachedStore wraps a store with an LRU cache holding up to size images.
func NewCachedStore(store Store, size int) (*CachedStore, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating reference cache: %w", err)
	}
	return &CachedStore{Store: store, cache: cache}, nil
}

// Open returns the cached image or reads it from the underlying store.
func (s *CachedStore) Open(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}
	data, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, err //nolint:wrapcheck // underlying store already adds context
	}
	s.cache.Add(key, data)
	return data, nil
}

// Save stores the image and drops any cached copy of the key.
func (s *CachedStore) Save(ctx context.Context, identityID, displayName, angle string, data []byte) (string, error) {
	key, err := s.Store.Save(ctx, identityID, displayName, angle, data)
	if err != nil {
		return "", err //nolint:wrapcheck // underlying store already adds context
	}
	s.cache.Remove(key)
	return key, nil
}

// Delete removes the identity's images and evicts their cached copies.
func (s *CachedStore) Delete(ctx context.Context, identityID string) (int, error) {
	removed, err := s.Store.Delete(ctx, identityID)
	for _, key := range s.cache.Keys() {
		if ref, ok := parseKey(key); ok && ref.IdentityID == identityID {
			s.cache.Remove(key)
		}
	}
	return removed, err //nolint:wrapcheck // underlying store already adds context
}

// Len returns the number of cached images.
func (s *CachedStore) Len() int {
	return s.cache.Len()
}
