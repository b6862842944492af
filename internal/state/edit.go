package state

import "github.com/andresuchdata/reorder-planner/internal/domain"

// ClampSimulation applies the toolbar limits: month 0..11, day 1..daysInMonth,
// non-negative percentages.
func ClampSimulation(p domain.SimulationParameters) domain.SimulationParameters {
	p.Month = clampInt(p.Month, 0, domain.MonthsPerYear-1)
	p.Day = clampInt(p.Day, 1, domain.DaysInMonth[p.Month])
	if p.GrowthPct < 0 {
		p.GrowthPct = 0
	}
	if p.SafetyPct < 0 {
		p.SafetyPct = 0
	}
	return p
}

func applyRecordPatch(r *domain.InventoryRecord, patch domain.RecordPatch) {
	if patch.CurrentStock != nil {
		r.CurrentStock = max(0, *patch.CurrentStock)
	}
	if patch.IncomingStock != nil {
		r.IncomingStock = max(0, *patch.IncomingStock)
	}
	if patch.ActiveOrders != nil {
		r.ActiveOrders = max(0, *patch.ActiveOrders)
	}
}

func applySKUPatch(s *domain.SKU, patch domain.SKUPatch) {
	if patch.MOQ != nil {
		s.MOQ = max(0, *patch.MOQ)
	}
	if patch.UnitCost != nil {
		v := max(0, *patch.UnitCost)
		s.UnitCost = &v
	}
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func findRecord(ds *domain.Dataset, key domain.RecordKey) (*domain.InventoryRecord, bool) {
	for i := range ds.Records {
		if ds.Records[i].SKUID == key.SKUID && ds.Records[i].Region == key.Region {
			return &ds.Records[i], true
		}
	}
	return nil, false
}

func findSKU(ds *domain.Dataset, id string) (*domain.SKU, bool) {
	for i := range ds.SKUs {
		if ds.SKUs[i].ID == id {
			return &ds.SKUs[i], true
		}
	}
	return nil, false
}
