package forecast

import (
	"math"

	"github.com/andresuchdata/reorder-planner/internal/domain"
)

const (
	// LookbackDays is the trailing window compared against the same window last year.
	LookbackDays = 90
	// MinHistoricalVolume guards the ratio against near-zero denominators.
	MinHistoricalVolume = 10.0

	MinGrowthFactor = 0.5
	MaxGrowthFactor = 3.0
)

// GrowthEstimate is the per-record demand multiplier and the volumes it came from
type GrowthEstimate struct {
	GrowthFactor     float64
	RecentVolume     float64
	HistoricalVolume float64
	IsFallback       bool
}

// FallbackGrowthFactor converts the global default growth percentage to a multiplier.
func FallbackGrowthFactor(defaultGrowthPct float64) float64 {
	return 1 + defaultGrowthPct/100
}

// ComputeGrowthFactor compares the 90 days ending at (simMonth, simDay) in the current
// year against the same calendar window last year. Records without recent history, or
// with too little historical volume, get the global fallback.
func ComputeGrowthFactor(record domain.InventoryRecord, simMonth, simDay int, defaultGrowthPct float64) (GrowthEstimate, error) {
	if err := validateSeries("history", record.History); err != nil {
		return GrowthEstimate{}, err
	}

	recent, ok := record.RecentHistory.Get()
	if !ok {
		return GrowthEstimate{
			GrowthFactor: FallbackGrowthFactor(defaultGrowthPct),
			IsFallback:   true,
		}, nil
	}
	if err := validateSeries("recent_history", recent); err != nil {
		return GrowthEstimate{}, err
	}

	recentVolume := SumProRatedWindow(recent, simMonth, simDay, LookbackDays, Backward)
	historicalVolume := SumProRatedWindow(record.History, simMonth, simDay, LookbackDays, Backward)

	estimate := GrowthEstimate{
		RecentVolume:     roundFloat(recentVolume, 2),
		HistoricalVolume: roundFloat(historicalVolume, 2),
	}

	if historicalVolume < MinHistoricalVolume {
		estimate.GrowthFactor = FallbackGrowthFactor(defaultGrowthPct)
		estimate.IsFallback = true
		return estimate, nil
	}

	raw := recentVolume / historicalVolume
	estimate.GrowthFactor = roundFloat(math.Min(math.Max(raw, MinGrowthFactor), MaxGrowthFactor), 3)

	return estimate, nil
}

func validateSeries(field string, series []float64) error {
	if len(series) != domain.MonthsPerYear {
		return &domain.InvalidHistoryLengthError{Field: field, Length: len(series)}
	}
	return nil
}
