package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/forecast"
	"github.com/andresuchdata/reorder-planner/internal/generator"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := NewStore(forecast.NewCalculator(domain.DefaultRegionConfig()), fixtureDataset(), fixtureParams(), opts)
	require.NoError(t, err)
	return s
}

func intPtr(v int) *int { return &v }

var usKey = domain.RecordKey{SKUID: "FRAME-16x20", Region: domain.RegionUS}

func TestNewStore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Version)
	assert.Len(t, snap.Records, 3)
	assert.Equal(t, fixtureParams(), snap.Params)

	_, err := NewStore(forecast.NewCalculator(domain.RegionConfig{domain.RegionUS: 40}), fixtureDataset(), fixtureParams(), Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewStore_ClampsParams(t *testing.T) {
	t.Parallel()

	s, err := NewStore(forecast.NewCalculator(domain.DefaultRegionConfig()), fixtureDataset(),
		domain.SimulationParameters{Month: 1, Day: 31, GrowthPct: -5, SafetyPct: -1}, Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.SimulationParameters{Month: 1, Day: 28}, s.Snapshot().Params)
}

func TestStore_UpdateRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	snap, err := s.UpdateRecord(usKey, domain.RecordPatch{CurrentStock: intPtr(5000), ActiveOrders: intPtr(-10)})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), snap.Version)
	assert.True(t, snap.DataChanged)
	rec, ok := snap.Find(usKey)
	require.True(t, ok)
	assert.Equal(t, 5000, rec.CurrentStock)
	assert.Zero(t, rec.ActiveOrders)
	assert.Equal(t, 50, rec.IncomingStock)
	assert.Equal(t, domain.StatusHealthy, rec.Status)
	assert.Zero(t, rec.SuggestedOrder)

	_, err = s.UpdateRecord(domain.RecordKey{SKUID: "FRAME-16x20", Region: "FR"}, domain.RecordPatch{CurrentStock: intPtr(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, uint64(2), s.Snapshot().Version)
}

func TestStore_UpdateSKU(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	snap, err := s.UpdateSKU("FRAME-16x20", domain.SKUPatch{MOQ: intPtr(1000)})
	require.NoError(t, err)

	rec, _ := snap.Find(usKey)
	assert.Equal(t, 1000, rec.MOQ)
	assert.Equal(t, 1000, rec.SuggestedOrder)

	snap, err = s.UpdateSKU("FRAME-16x20", domain.SKUPatch{MOQ: intPtr(-3)})
	require.NoError(t, err)
	rec, _ = snap.Find(usKey)
	assert.Zero(t, rec.MOQ)

	_, err = s.UpdateSKU("FRAME-00x00", domain.SKUPatch{MOQ: intPtr(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateHistory(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	before, _ := s.Snapshot().Find(usKey)

	snap, err := s.UpdateHistory(usKey, 10, 600)
	require.NoError(t, err)
	after, _ := snap.Find(usKey)
	assert.Equal(t, 600.0, after.History[10])
	assert.Greater(t, after.SeasonalDemand, before.SeasonalDemand)

	snap, err = s.UpdateHistory(usKey, 10, -5)
	require.NoError(t, err)
	after, _ = snap.Find(usKey)
	assert.Zero(t, after.History[10])

	_, err = s.UpdateHistory(usKey, 12, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
	_, err = s.UpdateHistory(usKey, -1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
}

func TestStore_UpdateRecentHistory(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})

	_, err := s.UpdateRecentHistory(usKey, 3, 10)
	assert.ErrorIs(t, err, domain.ErrNoRecentHistory)

	deKey := domain.RecordKey{SKUID: "FRAME-24x36", Region: domain.RegionDE}
	v1 := s.Snapshot()
	snap, err := s.UpdateRecentHistory(deKey, 8, 900)
	require.NoError(t, err)
	rec, _ := snap.Find(deKey)
	recent, ok := rec.RecentHistory.Get()
	require.True(t, ok)
	assert.Equal(t, 900.0, recent[8])

	// earlier snapshots keep their own series
	first, _ := v1.Find(deKey)
	old, _ := first.RecentHistory.Get()
	assert.Equal(t, 150.0, old[8])
}

func TestStore_SnapshotsAreImmutable(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	v1 := s.Snapshot()

	_, err := s.UpdateHistory(usKey, 0, 999)
	require.NoError(t, err)

	assert.Equal(t, 150.0, v1.Dataset.Records[0].History[0])
	rec, _ := v1.Find(usKey)
	assert.Equal(t, 150.0, rec.History[0])
}

func TestStore_SetSimulation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	snap, err := s.SetSimulation(domain.SimulationParameters{Month: 14, Day: 40, GrowthPct: 0, SafetyPct: 0})
	require.NoError(t, err)
	assert.Equal(t, domain.SimulationParameters{Month: 11, Day: 31}, snap.Params)
	assert.False(t, snap.DataChanged)

	rec, _ := snap.Find(usKey)
	assert.Equal(t, 1.0, rec.GrowthFactor)
	assert.Zero(t, rec.SafetyStock)
}

func TestStore_Observers(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})

	var versions []uint64
	unsubscribe := s.Subscribe(func(snap *Snapshot) {
		versions = append(versions, snap.Version)
	})

	_, err := s.UpdateRecord(usKey, domain.RecordPatch{CurrentStock: intPtr(1)})
	require.NoError(t, err)
	_, err = s.UpdateRecord(domain.RecordKey{SKUID: "nope", Region: "US"}, domain.RecordPatch{})
	require.Error(t, err)
	_, err = s.SetSimulation(fixtureParams())
	require.NoError(t, err)

	unsubscribe()
	_, err = s.SetSimulation(fixtureParams())
	require.NoError(t, err)

	assert.Equal(t, []uint64{2, 3}, versions)
}

func TestStore_RejectsMutationWhenRecomputeFails(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	ds := fixtureDataset()
	ds.Records[0].Region = "FR"

	_, err := s.Replace(ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Equal(t, uint64(1), s.Snapshot().Version)
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	_, err := s.Reset()
	assert.ErrorIs(t, err, ErrNoGenerator)

	gen := generator.New(11, nil)
	s = newTestStore(t, Options{Generator: gen, Workers: 4})
	snap, err := s.Reset()
	require.NoError(t, err)
	assert.Len(t, snap.Records, len(generator.FrameSizes)*3)
	assert.Equal(t, gen.Generate(), snap.Dataset)
	assert.Equal(t, fixtureParams(), snap.Params)
}

func TestStore_ConcurrentMutations(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{Workers: 2})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, _ = s.UpdateRecord(usKey, domain.RecordPatch{CurrentStock: intPtr(v)})
			_ = s.Snapshot().KPIs(domain.InventoryFilter{})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, uint64(21), s.Snapshot().Version)
}

func TestSnapshot_KPIsUseFilteredSet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	snap := s.Snapshot()

	assert.Equal(t, 3, snap.KPIs(domain.InventoryFilter{}).Total)
	uk := snap.KPIs(domain.InventoryFilter{Region: domain.RegionUK})
	assert.Equal(t, domain.KPISummary{Healthy: 1, Total: 1}, uk)
}
