package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, zap.NewNop(), true)

	var out []string
	assert.False(t, svc.Get(context.Background(), "jnv:k", &out))

	svc.Set(context.Background(), "jnv:k", []string{"a", "b"}, time.Minute)
	assert.True(t, svc.Get(context.Background(), "jnv:k", &out))
	assert.Equal(t, []string{"a", "b"}, out)

	assert.NoError(t, svc.Invalidate(context.Background(), "jnv:*"))
	assert.False(t, svc.Get(context.Background(), "jnv:k", &out))

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	svc.Set(context.Background(), "jnv:k", "v", 0)
	assert.Empty(t, repo.items)
	var out string
	assert.False(t, svc.Get(context.Background(), "jnv:k", &out))
	assert.NoError(t, svc.Invalidate(context.Background(), "jnv:*"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
