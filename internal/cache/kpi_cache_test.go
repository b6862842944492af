package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/reorder-planner/internal/config"
	"github.com/andresuchdata/reorder-planner/internal/domain"
)

func TestBuildKPIKey(t *testing.T) {
	t.Parallel()

	base := buildKPIKey(KPIKey{Version: 3})
	assert.Equal(t, "planner:kpis:v3:default", base)

	tests := []struct {
		name string
		a, b KPIKey
		same bool
	}{
		{name: "ALL equals no region", a: KPIKey{Version: 1, Filter: domain.InventoryFilter{Region: "all"}}, b: KPIKey{Version: 1}, same: true},
		{name: "region case", a: KPIKey{Version: 1, Filter: domain.InventoryFilter{Region: "us"}}, b: KPIKey{Version: 1, Filter: domain.InventoryFilter{Region: "US"}}, same: true},
		{name: "search case and space", a: KPIKey{Version: 1, Filter: domain.InventoryFilter{Search: " Frame "}}, b: KPIKey{Version: 1, Filter: domain.InventoryFilter{Search: "frame"}}, same: true},
		{name: "different region", a: KPIKey{Version: 1, Filter: domain.InventoryFilter{Region: "UK"}}, b: KPIKey{Version: 1, Filter: domain.InventoryFilter{Region: "DE"}}, same: false},
		{name: "different version", a: KPIKey{Version: 1}, b: KPIKey{Version: 2}, same: false},
		{name: "status set", a: KPIKey{Version: 1, Filter: domain.InventoryFilter{Status: domain.NewStatusSet(domain.StatusCritical)}}, b: KPIKey{Version: 1}, same: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ka, kb := buildKPIKey(tt.a), buildKPIKey(tt.b)
			assert.True(t, strings.HasPrefix(ka, kpiKeyPrefix))
			if tt.same {
				assert.Equal(t, ka, kb)
			} else {
				assert.NotEqual(t, ka, kb)
			}
		})
	}
}

func TestNewKPICache_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	c, err := NewKPICache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	key := KPIKey{Version: 1}
	require.NoError(t, c.Set(ctx, key, domain.KPISummary{Total: 3}))

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.InvalidateAll(ctx))
	assert.NoError(t, c.Close())
}

func TestBuildRedisOptions(t *testing.T) {
	t.Parallel()

	opts, err := buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@cache.internal:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestTTLFromConfig(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaultCacheTTL, ttlFromConfig(config.CacheConfig{}))
	assert.Equal(t, 30*time.Second, ttlFromConfig(config.CacheConfig{KPITTLSeconds: 30}))
}
