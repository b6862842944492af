package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/reorder-planner/internal/config"
	"github.com/andresuchdata/reorder-planner/internal/domain"
)

const (
	kpiKeyPrefix     = "planner:kpis"
	kpiScanBatchSize = 100
)

// KPIKey identifies one cached summary. Version is the snapshot version, so a new
// recompute never reads an older entry even before invalidation runs.
type KPIKey struct {
	Version uint64
	Filter  domain.InventoryFilter
}

type KPICache interface {
	Get(ctx context.Context, key KPIKey) (domain.KPISummary, bool, error)
	Set(ctx context.Context, key KPIKey, kpis domain.KPISummary) error
	InvalidateAll(ctx context.Context) error
	Close() error
}

type redisKPICache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopKPICache struct{}

// NewKPICache returns the redis cache when enabled, the noop cache otherwise.
func NewKPICache(cfg config.CacheConfig) (KPICache, error) {
	if !cfg.Enabled {
		return &noopKPICache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisKPICache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopKPICache() KPICache {
	return &noopKPICache{}
}

func (c *redisKPICache) Get(ctx context.Context, key KPIKey) (domain.KPISummary, bool, error) {
	payload, err := c.client.Get(ctx, buildKPIKey(key)).Bytes()
	if err == redis.Nil {
		return domain.KPISummary{}, false, nil
	}
	if err != nil {
		return domain.KPISummary{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var kpis domain.KPISummary
	if err := json.Unmarshal(payload, &kpis); err != nil {
		return domain.KPISummary{}, false, fmt.Errorf("decode kpi cache: %w", err)
	}
	return kpis, true, nil
}

func (c *redisKPICache) Set(ctx context.Context, key KPIKey, kpis domain.KPISummary) error {
	payload, err := json.Marshal(kpis)
	if err != nil {
		return fmt.Errorf("encode kpi cache: %w", err)
	}

	if err := c.client.Set(ctx, buildKPIKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisKPICache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, kpiKeyPrefix, kpiScanBatchSize)
}

func (c *redisKPICache) Close() error {
	return c.client.Close()
}

func (n *noopKPICache) Get(ctx context.Context, key KPIKey) (domain.KPISummary, bool, error) {
	return domain.KPISummary{}, false, nil
}

func (n *noopKPICache) Set(ctx context.Context, key KPIKey, kpis domain.KPISummary) error {
	return nil
}

func (n *noopKPICache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (n *noopKPICache) Close() error {
	return nil
}

func buildKPIKey(key KPIKey) string {
	return fmt.Sprintf("%s:v%d:%s", kpiKeyPrefix, key.Version, filterHash(key.Filter))
}

func filterHash(filter domain.InventoryFilter) string {
	region := strings.ToUpper(strings.TrimSpace(filter.Region))
	if region == domain.RegionAll {
		region = ""
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	if region == "" && search == "" && filter.Status == 0 {
		return "default"
	}

	raw := fmt.Sprintf("region=%s|search=%s|status=%d", region, search, filter.Status)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
