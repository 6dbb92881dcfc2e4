package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billscan/constants"
)

// Documented defaults for fields whose pattern did not match.
const (
	VendorUnknown         = "UNKNOWN"
	InvoiceNumberNotFound = "Not found"
)

// InvoiceRecord is the canonical output unit of the pipeline, serializable to
// the flat export row. TotalAmount is nil when no amount pattern matched;
// it is never silently zero.
type InvoiceRecord struct {
	ID            uuid.UUID          `json:"id"`
	SourceName    string             `json:"file_name"`
	Vendor        string             `json:"vendor"`
	InvoiceNumber string             `json:"invoice_no"`
	Date          time.Time          `json:"date"`
	TotalAmount   *decimal.Decimal   `json:"total_amount,omitempty"`
	Currency      constants.Currency `json:"currency"`
	Category      constants.Category `json:"category"`
	Summary       string             `json:"summary,omitempty"`
	RawText       string             `json:"extracted_text"`
	ContentHash   string             `json:"content_hash,omitempty"`
	IngestedAt    time.Time          `json:"ingested_at"`
}

// HasAmount reports whether an amount pattern matched for this record.
func (r *InvoiceRecord) HasAmount() bool {
	return r.TotalAmount != nil
}
