// Package geocode resolves coordinates into addresses. A bounded LRU cache in
// front of the backend collapses the near-duplicate lookups produced by
// stationary and slow vehicles.
package geocode

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/models"
)

// Backend performs the actual reverse geocoding.
type Backend interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*models.Geolocation, error)
}

// Resolver caches backend lookups keyed on coordinates rounded to 5 decimal
// places (~1m). Backend failures and empty results degrade to the
// "No Disponible" sentinel instead of propagating.
type Resolver struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, *models.Geolocation]
}

// NewResolver creates a resolver with a fixed cache capacity.
func NewResolver(backend Backend, capacity int, logger *zap.Logger) (*Resolver, error) {
	cache, err := lru.New[string, *models.Geolocation](capacity)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &Resolver{backend: backend, logger: logger, cache: cache}, nil
}

// Resolve returns the address for the given coordinates. It never fails: an
// unreachable backend or an unusable result yields the sentinel geolocation.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) *models.Geolocation {
	key := fmt.Sprintf("%.5f,%.5f", lat, lon)

	r.mu.Lock()
	if cached, ok := r.cache.Get(key); ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	info, err := r.backend.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		r.logger.Warn("reverse geocoding failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
		info = models.Unavailable()
	} else if !info.Valid() {
		info = models.Unavailable()
	}

	r.mu.Lock()
	r.cache.Add(key, info)
	r.mu.Unlock()

	return info
}

// CacheLen returns the number of cached coordinate keys.
func (r *Resolver) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
