package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"billscan/internal/entity"
	"billscan/internal/ledger"
)

// WriteXLSX returns a workbook with one Records sheet and a Summary sheet
// of the per-category totals, ready for download.
func WriteXLSX(records []entity.InvoiceRecord, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Records"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet excelize creates
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"File",
		"Vendor",
		"Invoice No",
		"Date",
		"Amount",
		"Currency",
		"Category",
		"Summary",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i := range records {
		r := &records[i]

		amount := ""
		if r.TotalAmount != nil {
			amount = r.TotalAmount.String()
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.SourceName)
		write(2, r.Vendor)
		write(3, r.InvoiceNumber)
		write(4, r.Date.Format("2006-01-02"))
		write(5, amount)
		write(6, string(r.Currency))
		write(7, string(r.Category))
		write(8, truncate(r.Summary, 140))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 32) // file
	_ = f.SetColWidth(sheet, "B", "B", 28) // vendor
	_ = f.SetColWidth(sheet, "C", "D", 14) // invoice no, date
	_ = f.SetColWidth(sheet, "E", "G", 12) // amount, currency, category
	_ = f.SetColWidth(sheet, "H", "H", 48) // summary

	if err := writeSummarySheet(f, records); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, records []entity.InvoiceRecord) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	sum := ledger.Aggregate(records)

	_ = f.SetCellValue(sheet, "A1", "Category")
	_ = f.SetCellValue(sheet, "B1", "Total")
	row := 2
	for _, g := range sum.ByCategory {
		cellA, _ := excelize.CoordinatesToCellName(1, row)
		cellB, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheet, cellA, g.Label)
		_ = f.SetCellValue(sheet, cellB, g.Total.String())
		row++
	}

	row++
	cellA, _ := excelize.CoordinatesToCellName(1, row)
	cellB, _ := excelize.CoordinatesToCellName(2, row)
	_ = f.SetCellValue(sheet, cellA, "Grand total")
	_ = f.SetCellValue(sheet, cellB, sum.Total.String())
	if sum.Mean != nil {
		cellA, _ = excelize.CoordinatesToCellName(1, row+1)
		cellB, _ = excelize.CoordinatesToCellName(2, row+1)
		_ = f.SetCellValue(sheet, cellA, "Mean")
		_ = f.SetCellValue(sheet, cellB, sum.Mean.String())
	}

	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "B", 14)
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
