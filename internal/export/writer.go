package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Reorder"

// Write renders the report in format f.
func Write(w io.Writer, report Report, f Format) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, report)
	case FormatCSV:
		return WriteCSV(w, report)
	default:
		return fmt.Errorf("unsupported report format %q", f)
	}
}

// WriteCSV writes the header followed by one line per row.
func WriteCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range report.Rows {
		if err := cw.Write(row.values()); err != nil {
			return fmt.Errorf("write csv row %s/%s: %w", row.SKUID, row.Region, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with the rows sheet and a totals line below them.
func WriteXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range report.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := xlsxValues(row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write xlsx row %s/%s: %w", row.SKUID, row.Region, err)
		}
	}

	totalRow := len(report.Rows) + 3
	totals := []struct {
		col   string
		value interface{}
	}{
		{"A", "total"},
		{"Q", report.TotalUnits},
		{"S", report.TotalCost.InexactFloat64()},
	}
	for _, t := range totals {
		if err := f.SetCellValue(sheetName, fmt.Sprintf("%s%d", t.col, totalRow), t.value); err != nil {
			return fmt.Errorf("write xlsx totals: %w", err)
		}
	}

	return f.Write(w)
}

// xlsxValues keeps numbers numeric so spreadsheets can sum them.
func xlsxValues(row Row) []interface{} {
	values := []interface{}{
		row.SKUID,
		row.Region,
		string(row.Status),
		row.CurrentStock,
		row.IncomingStock,
		row.ActiveOrders,
		row.NetAvailability,
		row.LeadTime,
		row.SeasonalDemand,
		row.GrowthFactor,
		row.Forecast,
		row.SafetyStock,
		row.ROP,
		row.DailyUsage,
		row.TargetStock,
		row.MOQ,
		row.SuggestedOrder,
		nil,
		nil,
	}
	if row.UnitCost != nil {
		values[17] = row.UnitCost.InexactFloat64()
	}
	if row.OrderCost != nil {
		values[18] = row.OrderCost.InexactFloat64()
	}
	return values
}
