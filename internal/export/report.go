// Package export renders enriched records as reorder reports.
package export

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/reorder-planner/internal/domain"
)

// Format is a report file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", case-insensitively. Empty means csv.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", raw)
	}
}

func (f Format) Extension() string {
	return string(f)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Row is one report line
type Row struct {
	domain.EnrichedRecord
	UnitCost  *decimal.Decimal
	OrderCost *decimal.Decimal // SuggestedOrder x UnitCost, nil without a unit cost
}

// Report is a rendered set of rows plus totals
type Report struct {
	GeneratedAt time.Time
	Params      domain.SimulationParameters
	Rows        []Row
	KPIs        domain.KPISummary
	TotalUnits  int
	TotalCost   decimal.Decimal
}

var columns = []string{
	"sku", "region", "status", "current_stock", "incoming_stock", "active_orders",
	"net_availability", "lead_time", "seasonal_demand", "growth_factor", "forecast",
	"safety_stock", "rop", "daily_usage", "target_stock", "moq", "suggested_order",
	"unit_cost", "order_cost",
}

// Columns returns the report header.
func Columns() []string {
	return append([]string(nil), columns...)
}

// EstimateOrderCost multiplies quantity by unitCost, rounded to cents.
func EstimateOrderCost(quantity int, unitCost *float64) (decimal.Decimal, bool) {
	if unitCost == nil {
		return decimal.Zero, false
	}
	cost := decimal.NewFromFloat(*unitCost).Mul(decimal.NewFromInt(int64(quantity)))
	return cost.Round(2), true
}

// Build joins records with their SKU costs. Rows keep the records' order.
func Build(records []domain.EnrichedRecord, skus []domain.SKU, params domain.SimulationParameters, kpis domain.KPISummary, now time.Time) Report {
	costs := make(map[string]*float64, len(skus))
	for _, s := range skus {
		costs[s.ID] = s.UnitCost
	}

	report := Report{
		GeneratedAt: now,
		Params:      params,
		Rows:        make([]Row, 0, len(records)),
		KPIs:        kpis,
		TotalCost:   decimal.Zero,
	}
	for _, r := range records {
		row := Row{EnrichedRecord: r}
		if unit := costs[r.SKUID]; unit != nil {
			u := decimal.NewFromFloat(*unit)
			row.UnitCost = &u
			cost, _ := EstimateOrderCost(r.SuggestedOrder, unit)
			row.OrderCost = &cost
			report.TotalCost = report.TotalCost.Add(cost)
		}
		report.TotalUnits += r.SuggestedOrder
		report.Rows = append(report.Rows, row)
	}
	return report
}

// ObjectKey returns "<prefix>/<yyyy-mm-dd>/<uuid>.<ext>" for uploads.
func ObjectKey(prefix string, now time.Time, f Format) string {
	name := uuid.NewString() + "." + f.Extension()
	return path.Join(strings.Trim(prefix, "/"), now.UTC().Format("2006-01-02"), name)
}

func (r Row) values() []string {
	return []string{
		r.SKUID,
		r.Region,
		string(r.Status),
		fmt.Sprint(r.CurrentStock),
		fmt.Sprint(r.IncomingStock),
		fmt.Sprint(r.ActiveOrders),
		fmt.Sprint(r.NetAvailability),
		fmt.Sprint(r.LeadTime),
		fmtFloat(r.SeasonalDemand),
		fmt.Sprintf("%.3f", r.GrowthFactor),
		fmtFloat(r.Forecast),
		fmtFloat(r.SafetyStock),
		fmtFloat(r.ROP),
		fmtFloat(r.DailyUsage),
		fmtFloat(r.TargetStock),
		fmt.Sprint(r.MOQ),
		fmt.Sprint(r.SuggestedOrder),
		fmtDecimal(r.UnitCost),
		fmtDecimal(r.OrderCost),
	}
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func fmtDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
