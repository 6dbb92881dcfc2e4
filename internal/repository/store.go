// Package repository implements the append-and-query persistence boundary
// for the invoice ledger. Stores are keyed by an auto-incrementing
// identifier and support exactly the two operations the tool needs:
// insert one record and select all records ordered by recency.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billscan/constants"
	"billscan/internal/entity"
)

// Store is the durable backing of the invoice ledger.
type Store interface {
	// SaveRecord appends one record and returns its auto-increment id.
	SaveRecord(ctx context.Context, rec *entity.InvoiceRecord) (int64, error)
	// ListRecords returns all records, most recent first.
	ListRecords(ctx context.Context) ([]entity.InvoiceRecord, error)
	// ExistsByHash reports whether a record with this content hash was
	// already saved (duplicate-confirm guard).
	ExistsByHash(ctx context.Context, hashHex string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

const (
	dateLayout = "2006-01-02"
)

// packRecord flattens the variable-typed fields into the column shapes
// both stores share: dates as text, amount as nullable text.
func packRecord(r *entity.InvoiceRecord) (txDate string, total *string, ingested string) {
	txDate = r.Date.Format(dateLayout)
	if r.TotalAmount != nil {
		s := r.TotalAmount.String()
		total = &s
	}
	ingested = r.IngestedAt.UTC().Format(time.RFC3339)
	return txDate, total, ingested
}

// buildRecord reverses packRecord for one scanned row.
func buildRecord(uid, fileName, vendor, invoiceNo, txDate string, total *string,
	currency, category, summary, rawText, hash, ingested string) (entity.InvoiceRecord, error) {

	rec := entity.InvoiceRecord{
		SourceName:    fileName,
		Vendor:        vendor,
		InvoiceNumber: invoiceNo,
		Currency:      constants.Currency(currency),
		Category:      constants.Category(category),
		Summary:       summary,
		RawText:       rawText,
		ContentHash:   hash,
	}

	id, err := uuid.Parse(uid)
	if err != nil {
		return rec, fmt.Errorf("parse record uid: %w", err)
	}
	rec.ID = id

	rec.Date, err = time.Parse(dateLayout, txDate)
	if err != nil {
		return rec, fmt.Errorf("parse tx_date: %w", err)
	}

	if total != nil && *total != "" {
		amt, err := decimal.NewFromString(*total)
		if err != nil {
			return rec, fmt.Errorf("parse total_amount: %w", err)
		}
		rec.TotalAmount = &amt
	}

	rec.IngestedAt, err = time.Parse(time.RFC3339, ingested)
	if err != nil {
		return rec, fmt.Errorf("parse ingested_at: %w", err)
	}
	return rec, nil
}
