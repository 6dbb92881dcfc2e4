// Package export serializes ledger records to their flat-row forms.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billscan/constants"
	"billscan/internal/entity"
)

// Columns of the flat row, in order.
var Columns = []string{
	"file_name", "vendor", "invoice_no", "date",
	"total_amount", "currency", "category", "extracted_text",
}

const dateLayout = "2006-01-02"

// MarshalRow flattens one record. An absent amount serializes to the empty
// string, never "0".
func MarshalRow(r *entity.InvoiceRecord) []string {
	amount := ""
	if r.TotalAmount != nil {
		amount = r.TotalAmount.String()
	}
	return []string{
		r.SourceName,
		r.Vendor,
		r.InvoiceNumber,
		r.Date.Format(dateLayout),
		amount,
		string(r.Currency),
		string(r.Category),
		r.RawText,
	}
}

// UnmarshalRow parses one flat row back into a record. Present fields
// round-trip exactly; the documented defaults ("UNKNOWN", "Not found")
// survive as their literal values.
func UnmarshalRow(row []string) (entity.InvoiceRecord, error) {
	if len(row) != len(Columns) {
		return entity.InvoiceRecord{}, fmt.Errorf("row has %d columns, want %d", len(row), len(Columns))
	}

	rec := entity.InvoiceRecord{
		ID:            uuid.New(),
		SourceName:    row[0],
		Vendor:        row[1],
		InvoiceNumber: row[2],
		Currency:      constants.Currency(row[5]),
		Category:      constants.Category(row[6]),
		RawText:       row[7],
	}

	date, err := time.Parse(dateLayout, row[3])
	if err != nil {
		return rec, fmt.Errorf("parse date %q: %w", row[3], err)
	}
	rec.Date = date

	if row[4] != "" {
		amt, err := decimal.NewFromString(row[4])
		if err != nil {
			return rec, fmt.Errorf("parse total_amount %q: %w", row[4], err)
		}
		rec.TotalAmount = &amt
	}
	return rec, nil
}

// WriteCSV emits a header plus one row per record.
func WriteCSV(w io.Writer, records []entity.InvoiceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range records {
		if err := cw.Write(MarshalRow(&records[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a document written by WriteCSV.
func ReadCSV(r io.Reader) ([]entity.InvoiceRecord, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var out []entity.InvoiceRecord
	for i, row := range rows[1:] { // skip header
		rec, err := UnmarshalRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
