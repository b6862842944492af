package domain

// DerivedMetrics is the computed output for one SKU/region record.
// It is never stored; it only exists as the result of a recompute.
type DerivedMetrics struct {
	LeadTime         int     `json:"lead_time"`
	SeasonalDemand   float64 `json:"seasonal_demand"`
	Forecast         float64 `json:"forecast"`
	SafetyStock      float64 `json:"safety_stock"`
	ROP              float64 `json:"rop"`
	NetAvailability  int     `json:"net_availability"`
	DailyUsage       float64 `json:"daily_usage"`
	TargetStock      float64 `json:"target_stock"`
	SuggestedOrder   int     `json:"suggested_order"`
	Status           Status  `json:"status"`
	GrowthFactor     float64 `json:"growth_factor"`
	RecentVolume     float64 `json:"recent_volume"`
	HistoricalVolume float64 `json:"historical_volume"`
	IsGrowthFallback bool    `json:"is_growth_fallback"`
}

// EnrichedRecord joins a raw record, its SKU MOQ and the derived metrics
type EnrichedRecord struct {
	InventoryRecord
	MOQ int `json:"moq"`
	DerivedMetrics
}

// KPISummary counts records per actionable bucket
type KPISummary struct {
	ToOrder      int `json:"to_order"`
	StockoutRisk int `json:"stockout_risk"`
	Warning      int `json:"warning"`
	Healthy      int `json:"healthy"`
	Total        int `json:"total"`
}

// SeasonalityPoint is one bar of the 12-month seasonality chart
type SeasonalityPoint struct {
	Month    int     `json:"month"`
	Name     string  `json:"name"`
	Sales    float64 `json:"sales"`
	InWindow bool    `json:"in_window"`
}
