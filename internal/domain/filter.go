package domain

import "strings"

// InventoryFilter narrows the enriched records shown and counted in KPIs
type InventoryFilter struct {
	Region string    `json:"region"` // RegionAll or "" for every region
	Search string    `json:"search"` // Case-insensitive substring of the SKU id
	// Status keeps records whose derived status is in the set; empty keeps all.
	Status StatusSet `json:"status"`
}

// Matches reports whether the record passes the filter.
func (f InventoryFilter) Matches(r InventoryRecord) bool {
	region := strings.TrimSpace(f.Region)
	if region != "" && !strings.EqualFold(region, RegionAll) && !strings.EqualFold(region, r.Region) {
		return false
	}
	q := strings.TrimSpace(f.Search)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.SKUID), strings.ToLower(q))
}

// MatchesEnriched also applies the status part of the filter.
func (f InventoryFilter) MatchesEnriched(r EnrichedRecord) bool {
	return f.Status.Has(r.Status) && f.Matches(r.InventoryRecord)
}
