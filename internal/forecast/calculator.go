package forecast

import (
	"math"

	"github.com/andresuchdata/reorder-planner/internal/domain"
)

const (
	// CycleStockDays is the replenishment-cycle buffer kept beyond the reorder point.
	CycleStockDays = 30
	// WarningBand marks availability up to 25% above the reorder point as WARNING.
	WarningBand = 1.25
)

// Calculator derives reorder metrics for single records against a region config
type Calculator struct {
	regions domain.RegionConfig
}

// NewCalculator creates a new metrics calculator. The region config is copied.
func NewCalculator(regions domain.RegionConfig) *Calculator {
	cp := make(domain.RegionConfig, len(regions))
	for k, v := range regions {
		cp[k] = v
	}
	return &Calculator{regions: cp}
}

// Regions returns a copy of the configured lead times.
func (c *Calculator) Regions() domain.RegionConfig {
	cp := make(domain.RegionConfig, len(c.regions))
	for k, v := range c.regions {
		cp[k] = v
	}
	return cp
}

// ComputeMetrics computes all derived metrics for one record.
// Intermediate values keep full precision; only returned fields are rounded.
func (c *Calculator) ComputeMetrics(record domain.InventoryRecord, sku domain.SKU, params domain.SimulationParameters) (domain.DerivedMetrics, error) {
	// 1. Lead time for the record's region
	leadTime, err := c.regions.LeadTime(record.Region)
	if err != nil {
		return domain.DerivedMetrics{}, err
	}

	// 2-3. Growth first, it validates both monthly series
	growth, err := ComputeGrowthFactor(record, params.Month, params.Day, params.GrowthPct)
	if err != nil {
		return domain.DerivedMetrics{}, err
	}
	seasonalDemand := SumProRatedWindow(record.History, params.Month, params.Day, leadTime, Forward)

	// 4-6. Forecast, safety stock and reorder point
	forecast := seasonalDemand * growth.GrowthFactor
	safetyStock := forecast * params.SafetyPct / 100
	rop := forecast + safetyStock

	// 7. Net availability may go negative
	netAvailability := record.CurrentStock + record.IncomingStock - record.ActiveOrders

	// 8-10. Cycle stock target and deficit
	dailyUsage := forecast / float64(leadTime)
	targetStock := rop + dailyUsage*CycleStockDays
	deficit := targetStock - float64(netAvailability)

	// 11. Suggested order, floored by the MOQ
	suggestedOrder := 0
	if deficit > 0 {
		suggestedOrder = max(sku.MOQ, int(math.Ceil(deficit)))
	}

	return domain.DerivedMetrics{
		LeadTime:         leadTime,
		SeasonalDemand:   roundFloat(seasonalDemand, 2),
		Forecast:         roundFloat(forecast, 2),
		SafetyStock:      roundFloat(safetyStock, 2),
		ROP:              roundFloat(rop, 2),
		NetAvailability:  netAvailability,
		DailyUsage:       roundFloat(dailyUsage, 2),
		TargetStock:      roundFloat(targetStock, 2),
		SuggestedOrder:   suggestedOrder,
		Status:           ClassifyStatus(float64(netAvailability), rop),
		GrowthFactor:     growth.GrowthFactor,
		RecentVolume:     growth.RecentVolume,
		HistoricalVolume: growth.HistoricalVolume,
		IsGrowthFallback: growth.IsFallback,
	}, nil
}

// ClassifyStatus maps availability against the unrounded reorder point. First match wins.
func ClassifyStatus(netAvailability, rop float64) domain.Status {
	switch {
	case netAvailability <= 0:
		return domain.StatusStockout
	case netAvailability <= rop:
		return domain.StatusCritical
	case netAvailability <= rop*WarningBand:
		return domain.StatusWarning
	default:
		return domain.StatusHealthy
	}
}

// Seasonality returns the 12-month chart for a record, flagging the months its
// lead-time window covers.
func (c *Calculator) Seasonality(record domain.InventoryRecord, params domain.SimulationParameters) ([]domain.SeasonalityPoint, error) {
	leadTime, err := c.regions.LeadTime(record.Region)
	if err != nil {
		return nil, err
	}
	if err := validateSeries("history", record.History); err != nil {
		return nil, err
	}

	inWindow := make(map[int]bool, domain.MonthsPerYear)
	for _, m := range WindowMonths(params.Month, params.Day, leadTime) {
		inWindow[m] = true
	}

	points := make([]domain.SeasonalityPoint, domain.MonthsPerYear)
	for i := range points {
		points[i] = domain.SeasonalityPoint{
			Month:    i,
			Name:     domain.MonthNames[i],
			Sales:    record.History[i],
			InWindow: inWindow[i],
		}
	}
	return points, nil
}
