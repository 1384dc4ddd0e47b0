package cache

import (
	"context"
	"errors"
	"time"

	"github.com/crossfield/investigation-engine/internal/service/engine"
)

// ValidationStore persists query validation verdicts in the cache so
// repeated submissions of expensive expressions skip re-analysis.
type ValidationStore struct {
	cache Cache
	ttl   time.Duration
}

// NewValidationStore creates a validation store with the given TTL
func NewValidationStore(cache Cache, ttl time.Duration) *ValidationStore {
	if ttl <= 0 {
		ttl = ValidationTTL
	}
	return &ValidationStore{cache: cache, ttl: ttl}
}

// GetValidation returns the cached verdict, or nil on a miss
func (s *ValidationStore) GetValidation(ctx context.Context, key string) (*engine.CachedValidation, error) {
	var cached engine.CachedValidation
	err := s.cache.GetJSON(ctx, ValidationPrefix+key, &cached)
	if err != nil {
		var notFound ErrCacheKeyNotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cached, nil
}

// SetValidation stores a verdict under the store's TTL
func (s *ValidationStore) SetValidation(ctx context.Context, key string, cached *engine.CachedValidation) error {
	if cached.CachedAt.IsZero() {
		cached.CachedAt = time.Now()
	}
	return s.cache.SetJSON(ctx, ValidationPrefix+key, cached, s.ttl)
}
