package forecast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/reorder-planner/internal/domain"
)

func scaled(h []float64, f float64) []float64 {
	out := make([]float64, len(h))
	for i, v := range h {
		out[i] = v * f
	}
	return out
}

func TestComputeGrowthFactor(t *testing.T) {
	t.Parallel()

	base := unitRateHistory()

	tests := []struct {
		name         string
		record       domain.InventoryRecord
		expectFactor float64
		expectRecent float64
		expectHist   float64
		fallback     bool
	}{
		{
			name:         "no_recent_history_falls_back",
			record:       domain.InventoryRecord{History: base, RecentHistory: domain.NoRecentHistory()},
			expectFactor: 1.2,
			fallback:     true,
		},
		{
			name:         "low_historical_volume_falls_back_with_volumes",
			record:       domain.InventoryRecord{History: scaled(base, 0.05), RecentHistory: domain.SomeRecentHistory(base)},
			expectFactor: 1.2,
			expectRecent: 90,
			expectHist:   4.5,
			fallback:     true,
		},
		{
			name:         "doubling_demand",
			record:       domain.InventoryRecord{History: base, RecentHistory: domain.SomeRecentHistory(scaled(base, 2))},
			expectFactor: 2,
			expectRecent: 180,
			expectHist:   90,
		},
		{
			name:         "clamped_to_upper_bound",
			record:       domain.InventoryRecord{History: base, RecentHistory: domain.SomeRecentHistory(scaled(base, 5))},
			expectFactor: MaxGrowthFactor,
			expectRecent: 450,
			expectHist:   90,
		},
		{
			name:         "clamped_to_lower_bound",
			record:       domain.InventoryRecord{History: base, RecentHistory: domain.SomeRecentHistory(scaled(base, 0.1))},
			expectFactor: MinGrowthFactor,
			expectRecent: 9,
			expectHist:   90,
		},
		{
			name:         "rounded_to_three_decimals",
			record:       domain.InventoryRecord{History: base, RecentHistory: domain.SomeRecentHistory(scaled(base, 1.23456))},
			expectFactor: 1.235,
			expectRecent: 111.11,
			expectHist:   90,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ComputeGrowthFactor(tt.record, 9, 15, 20)
			require.NoError(t, err)
			assert.Equal(t, tt.fallback, got.IsFallback)
			assert.InDelta(t, tt.expectFactor, got.GrowthFactor, 1e-12)
			assert.InDelta(t, tt.expectRecent, got.RecentVolume, 1e-9)
			assert.InDelta(t, tt.expectHist, got.HistoricalVolume, 1e-9)
		})
	}
}

func TestComputeGrowthFactor_FallbackUsesDefaultExactly(t *testing.T) {
	t.Parallel()

	for _, pct := range []float64{0, 7.5, 20, 100, 250} {
		got, err := ComputeGrowthFactor(domain.InventoryRecord{History: unitRateHistory()}, 0, 1, pct)
		require.NoError(t, err)
		assert.True(t, got.IsFallback)
		assert.Equal(t, 1+pct/100, got.GrowthFactor)
	}
}

func TestComputeGrowthFactor_BoundedWhenEstimated(t *testing.T) {
	t.Parallel()

	base := unitRateHistory()
	for _, f := range []float64{0, 0.2, 0.5, 0.9, 1, 1.7, 3, 8, 40} {
		for m := 0; m < domain.MonthsPerYear; m++ {
			got, err := ComputeGrowthFactor(domain.InventoryRecord{
				History:       base,
				RecentHistory: domain.SomeRecentHistory(scaled(base, f)),
			}, m, domain.DaysInMonth[m], 10)
			require.NoError(t, err)
			require.False(t, got.IsFallback)
			assert.GreaterOrEqual(t, got.GrowthFactor, MinGrowthFactor)
			assert.LessOrEqual(t, got.GrowthFactor, MaxGrowthFactor)
		}
	}
}

func TestComputeGrowthFactor_InvalidLengths(t *testing.T) {
	t.Parallel()

	_, err := ComputeGrowthFactor(domain.InventoryRecord{
		History:       unitRateHistory(),
		RecentHistory: domain.SomeRecentHistory(make([]float64, 11)),
	}, 0, 1, 20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidHistoryLength))

	var lenErr *domain.InvalidHistoryLengthError
	require.True(t, errors.As(err, &lenErr))
	assert.Equal(t, "recent_history", lenErr.Field)
	assert.Equal(t, 11, lenErr.Length)

	_, err = ComputeGrowthFactor(domain.InventoryRecord{History: make([]float64, 13)}, 0, 1, 20)
	require.True(t, errors.As(err, &lenErr))
	assert.Equal(t, "history", lenErr.Field)
}

func TestComputeGrowthFactor_HistoricalVolumeThreshold(t *testing.T) {
	t.Parallel()

	// window ending Oct 10 covers ten days of October
	oct := func(daily float64) []float64 {
		h := make([]float64, domain.MonthsPerYear)
		h[9] = daily * float64(domain.DaysInMonth[9])
		return h
	}
	recent := domain.SomeRecentHistory(oct(1.5))

	got, err := ComputeGrowthFactor(domain.InventoryRecord{History: oct(1), RecentHistory: recent}, 9, 10, 20)
	require.NoError(t, err)
	assert.False(t, got.IsFallback)
	assert.Equal(t, MinHistoricalVolume, got.HistoricalVolume)
	assert.InDelta(t, 15, got.RecentVolume, 1e-9)
	assert.InDelta(t, 1.5, got.GrowthFactor, 1e-12)

	got, err = ComputeGrowthFactor(domain.InventoryRecord{History: oct(0.999), RecentHistory: recent}, 9, 10, 20)
	require.NoError(t, err)
	assert.True(t, got.IsFallback)
	assert.InDelta(t, 9.99, got.HistoricalVolume, 1e-9)
	assert.InDelta(t, 15, got.RecentVolume, 1e-9)
	assert.InDelta(t, 1.2, got.GrowthFactor, 1e-12)
}
