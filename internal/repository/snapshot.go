package repository

import (
	"context"
	"errors"
	"fmt"

	domrepo "Conflux/internal/domain/repository"
	"Conflux/pkg/cache"
)

// CacheSnapshotter persists store snapshots through the cache service
// (redis in production) so a restart does not lose accumulated levels and
// views. Snapshots are stored without expiration.
type CacheSnapshotter struct {
	cache cache.Service
	key   string
}

func NewCacheSnapshotter(c cache.Service, key string) *CacheSnapshotter {
	if key == "" {
		key = "state:snapshot"
	}
	return &CacheSnapshotter{cache: c, key: key}
}

func (s *CacheSnapshotter) Save(ctx context.Context, b []byte) error {
	if err := s.cache.Set(ctx, s.key, string(b), 0); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *CacheSnapshotter) Load(ctx context.Context) ([]byte, bool, error) {
	var raw string
	if err := s.cache.Get(ctx, s.key, &raw); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	if raw == "" {
		return nil, false, nil
	}
	return []byte(raw), true, nil
}

var _ domrepo.Snapshotter = (*CacheSnapshotter)(nil)
