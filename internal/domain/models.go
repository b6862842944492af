// internal/domain/models.go
package domain

import (
	"bytes"
	"encoding/json"
)

// MonthsPerYear is the fixed length of every monthly sales series.
const MonthsPerYear = 12

// SKU represents a stock keeping unit shared across all regions
type SKU struct {
	ID       string   `json:"id" db:"id"`
	MOQ      int      `json:"moq" db:"moq"`                       // Minimum order quantity
	UnitCost *float64 `json:"unit_cost,omitempty" db:"unit_cost"` // Optional, only used by reports
}

// RecentHistory is the current-year monthly sales series of a record.
// Absence is a valid state meaning "insufficient recent data".
type RecentHistory struct {
	values  []float64
	present bool
}

// SomeRecentHistory wraps a current-year series.
func SomeRecentHistory(values []float64) RecentHistory {
	return RecentHistory{values: append([]float64(nil), values...), present: true}
}

// NoRecentHistory returns the absent value.
func NoRecentHistory() RecentHistory {
	return RecentHistory{}
}

// Get returns the series and whether it is present.
func (r RecentHistory) Get() ([]float64, bool) {
	return r.values, r.present
}

// IsPresent reports whether a current-year series exists.
func (r RecentHistory) IsPresent() bool {
	return r.present
}

// Clone returns a copy that does not share the backing array.
func (r RecentHistory) Clone() RecentHistory {
	if !r.present {
		return r
	}
	return SomeRecentHistory(r.values)
}

func (r RecentHistory) MarshalJSON() ([]byte, error) {
	if !r.present {
		return []byte("null"), nil
	}
	return json.Marshal(r.values)
}

func (r *RecentHistory) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = NoRecentHistory()
		return nil
	}
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*r = RecentHistory{values: values, present: true}
	return nil
}

// InventoryRecord holds the raw inventory fields of one SKU in one region
type InventoryRecord struct {
	SKUID         string        `json:"sku_id"`
	Region        string        `json:"region"`
	CurrentStock  int           `json:"current_stock"`
	IncomingStock int           `json:"incoming_stock"`
	ActiveOrders  int           `json:"active_orders"`
	History       []float64     `json:"history"`        // Last year's monthly totals, Jan=0
	RecentHistory RecentHistory `json:"recent_history"` // This year's monthly totals, optional
}

// Clone returns a deep copy of the record.
func (r InventoryRecord) Clone() InventoryRecord {
	c := r
	c.History = append([]float64(nil), r.History...)
	c.RecentHistory = r.RecentHistory.Clone()
	return c
}

// Key identifies a record inside a dataset.
func (r InventoryRecord) Key() RecordKey {
	return RecordKey{SKUID: r.SKUID, Region: r.Region}
}

// RecordKey is the (sku, region) identity of a record
type RecordKey struct {
	SKUID  string
	Region string
}

// Dataset is the full set of raw inputs owned by the editing layer
type Dataset struct {
	SKUs    []SKU             `json:"skus"`
	Records []InventoryRecord `json:"records"`
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	c := Dataset{
		SKUs:    make([]SKU, len(d.SKUs)),
		Records: make([]InventoryRecord, len(d.Records)),
	}
	for i, s := range d.SKUs {
		c.SKUs[i] = s
		if s.UnitCost != nil {
			v := *s.UnitCost
			c.SKUs[i].UnitCost = &v
		}
	}
	for i, r := range d.Records {
		c.Records[i] = r.Clone()
	}
	return c
}

// IsEmpty reports whether the dataset carries no records.
func (d Dataset) IsEmpty() bool {
	return len(d.SKUs) == 0 && len(d.Records) == 0
}

// SimulationParameters represents "today" plus the two global policy knobs
type SimulationParameters struct {
	Month     int     `json:"month"` // 0-based, 0=Jan
	Day       int     `json:"day"`   // 1-based day of month
	GrowthPct float64 `json:"growth_pct"`
	SafetyPct float64 `json:"safety_pct"`
}

// RecordPatch carries optional field updates for a record
type RecordPatch struct {
	CurrentStock  *int `json:"current_stock,omitempty"`
	IncomingStock *int `json:"incoming_stock,omitempty"`
	ActiveOrders  *int `json:"active_orders,omitempty"`
}

// SKUPatch carries optional field updates for a SKU
type SKUPatch struct {
	MOQ      *int     `json:"moq,omitempty"`
	UnitCost *float64 `json:"unit_cost,omitempty"`
}
