// Package cache holds the backend catalog cache used by the HTTP layer.
package cache

import (
	"crypto/sha1" //nolint:gosec // G505: sha1 for cache keys, not security
	"encoding/hex"
	"slices"
	"time"

	"modelctl/internal/core"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const cacheKeyVersion = "v1"

// CacheService caches the backend model catalog for the HTTP layer.
// Callers always receive their own copy of a cached catalog.
type CacheService struct {
	catalog *expirable.LRU[string, []core.BackendModel]
	enabled bool
}

// NewCacheService creates a catalog cache whose entries live for ttl.
// A non-positive ttl disables caching.
func NewCacheService(ttl time.Duration) *CacheService {
	return &CacheService{
		catalog: expirable.NewLRU[string, []core.BackendModel](core.CacheDefaultCapacity, nil, ttl),
		enabled: ttl > 0,
	}
}

// Enabled reports whether SetCatalog stores anything.
func (cs *CacheService) Enabled() bool {
	return cs.enabled
}

// GetCatalog returns a copy of the cached backend catalog.
func (cs *CacheService) GetCatalog(key string) ([]core.BackendModel, bool) {
	models, found := cs.catalog.Get(key)
	if !found {
		return nil, false
	}
	return slices.Clone(models), true
}

// SetCatalog stores a copy of the backend catalog.
func (cs *CacheService) SetCatalog(key string, models []core.BackendModel) {
	if !cs.enabled {
		return
	}
	cs.catalog.Add(key, slices.Clone(models))
}

// InvalidateCatalog drops every cached catalog. Starting a model may pull
// it, so the next catalog read must go to the backend.
func (cs *CacheService) InvalidateCatalog() {
	cs.catalog.Purge()
}

// Close drops every cached catalog.
func (cs *CacheService) Close() error {
	cs.catalog.Purge()
	return nil
}

// GenerateCatalogCacheKey derives the catalog key for a backend base URL.
func GenerateCatalogCacheKey(baseURL string) string {
	sum := sha1.Sum([]byte(baseURL)) //nolint:gosec // G401: sha1 for cache keys, not security
	return core.CatalogCacheKey + ":" + cacheKeyVersion + ":" + hex.EncodeToString(sum[:])
}

// TruncateCacheKey shortens a key for log output.
func TruncateCacheKey(key string, maxLen int) string {
	if len(key) <= maxLen {
		return key
	}
	return key[:maxLen]
}
