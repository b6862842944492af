// Package ingest reads and writes inventory records as flat CSV rows, one row per
// SKU/region with the two 12-month series spread across columns.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/andresuchdata/reorder-planner/internal/domain"
)

var monthKeys = [domain.MonthsPerYear]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// Header returns the canonical column order written by WriteCSV.
func Header() []string {
	header := []string{"sku", "region", "current_stock", "incoming_stock", "active_orders", "moq", "unit_cost"}
	for _, m := range monthKeys {
		header = append(header, "h_"+m)
	}
	for _, m := range monthKeys {
		header = append(header, "r_"+m)
	}
	return header
}

// ReadFile opens path and parses it with ReadCSV.
func ReadFile(path string) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Dataset{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return domain.Dataset{}, errors.Wrapf(err, "read %s", path)
	}
	return ds, nil
}

// ReadCSV parses inventory rows. Header names are matched loosely ("Current Stock",
// "current_stock" and "currentstock" are the same column). Empty recent columns mean
// the record has no recent history; a partially filled recent series is rejected.
func ReadCSV(r io.Reader) (domain.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return domain.Dataset{}, errors.Wrap(err, "read header")
	}

	colIndex := func(names ...string) int {
		targets := make(map[string]struct{}, len(names))
		for _, name := range names {
			targets[normalizeColumnName(name)] = struct{}{}
		}
		for i, h := range header {
			if _, ok := targets[normalizeColumnName(h)]; ok {
				return i
			}
		}
		return -1
	}

	idxSKU := colIndex("sku", "sku_id", "skuid")
	idxRegion := colIndex("region")
	idxCurrent := colIndex("current_stock", "stock")
	idxIncoming := colIndex("incoming_stock", "incoming")
	idxActive := colIndex("active_orders", "orders")
	idxMOQ := colIndex("moq", "min_order", "min order")
	idxUnitCost := colIndex("unit_cost", "cost")

	if idxSKU < 0 || idxRegion < 0 {
		return domain.Dataset{}, fmt.Errorf("csv header must contain sku and region columns")
	}

	var idxHistory, idxRecent [domain.MonthsPerYear]int
	for i, m := range monthKeys {
		idxHistory[i] = colIndex("h_"+m, "history_"+m)
		if idxHistory[i] < 0 {
			return domain.Dataset{}, fmt.Errorf("csv header is missing column h_%s", m)
		}
		idxRecent[i] = colIndex("r_"+m, "recent_"+m)
	}

	var (
		ds      domain.Dataset
		skuSeen = make(map[string]int)
		line    = 1
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Dataset{}, errors.Wrapf(err, "line %d", line+1)
		}
		line++

		p := rowParser{row: row}
		record := domain.InventoryRecord{
			SKUID:         p.get(idxSKU),
			Region:        strings.ToUpper(p.get(idxRegion)),
			CurrentStock:  p.int(idxCurrent),
			IncomingStock: p.int(idxIncoming),
			ActiveOrders:  p.int(idxActive),
			History:       make([]float64, domain.MonthsPerYear),
		}
		if record.SKUID == "" {
			continue
		}

		for i, idx := range idxHistory {
			record.History[i] = p.float(idx)
		}

		recent := make([]float64, 0, domain.MonthsPerYear)
		for _, idx := range idxRecent {
			if p.get(idx) == "" {
				continue
			}
			recent = append(recent, p.float(idx))
		}
		switch len(recent) {
		case 0:
			record.RecentHistory = domain.NoRecentHistory()
		case domain.MonthsPerYear:
			record.RecentHistory = domain.SomeRecentHistory(recent)
		default:
			return domain.Dataset{}, errors.Wrapf(&domain.InvalidHistoryLengthError{Field: "recent_history", Length: len(recent)}, "line %d", line)
		}

		if p.err != nil {
			return domain.Dataset{}, errors.Wrapf(p.err, "line %d", line)
		}

		sku := domain.SKU{ID: record.SKUID, MOQ: p.int(idxMOQ)}
		if p.get(idxUnitCost) != "" {
			cost := p.float(idxUnitCost)
			sku.UnitCost = &cost
		}
		if p.err != nil {
			return domain.Dataset{}, errors.Wrapf(p.err, "line %d", line)
		}

		if prev, ok := skuSeen[sku.ID]; ok {
			if ds.SKUs[prev].MOQ != sku.MOQ {
				return domain.Dataset{}, fmt.Errorf("line %d: sku %s has conflicting moq %d and %d", line, sku.ID, ds.SKUs[prev].MOQ, sku.MOQ)
			}
		} else {
			skuSeen[sku.ID] = len(ds.SKUs)
			ds.SKUs = append(ds.SKUs, sku)
		}
		ds.Records = append(ds.Records, record)
	}

	return ds, nil
}

// WriteCSV writes ds in the layout ReadCSV accepts.
func WriteCSV(w io.Writer, ds domain.Dataset) error {
	skus := make(map[string]domain.SKU, len(ds.SKUs))
	for _, s := range ds.SKUs {
		skus[s.ID] = s
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}

	for _, r := range ds.Records {
		sku := skus[r.SKUID]
		row := []string{
			r.SKUID,
			r.Region,
			strconv.Itoa(r.CurrentStock),
			strconv.Itoa(r.IncomingStock),
			strconv.Itoa(r.ActiveOrders),
			strconv.Itoa(sku.MOQ),
			"",
		}
		if sku.UnitCost != nil {
			row[6] = formatFloat(*sku.UnitCost)
		}
		for i := 0; i < domain.MonthsPerYear; i++ {
			row = append(row, seriesValue(r.History, i))
		}
		recent, ok := r.RecentHistory.Get()
		for i := 0; i < domain.MonthsPerYear; i++ {
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, seriesValue(recent, i))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

type rowParser struct {
	row []string
	err error
}

func (p *rowParser) get(idx int) string {
	if idx < 0 || idx >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[idx])
}

func (p *rowParser) float(idx int) float64 {
	v := strings.ReplaceAll(p.get(idx), ",", "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %d: invalid number %q", idx+1, v)
	}
	return f
}

func (p *rowParser) int(idx int) int {
	return int(p.float(idx))
}

func seriesValue(series []float64, i int) string {
	if i >= len(series) {
		return "0"
	}
	return formatFloat(series[i])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}
