package ledger

import (
	"github.com/shopspring/decimal"

	"billscan/internal/entity"
)

// GroupTotal is one label→sum pair. Groupings are slices, not maps, so
// iteration order is the first-seen insertion order and charts render
// stably across recomputations.
type GroupTotal struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// Summary is the chart-ready aggregate over a set of records.
// Mean is nil when no record carries an amount: an explicit no-data state,
// never a fault or a NaN.
type Summary struct {
	Count      int              `json:"count"`
	WithAmount int              `json:"with_amount"`
	Total      decimal.Decimal  `json:"total"`
	Mean       *decimal.Decimal `json:"mean,omitempty"`
	ByCategory []GroupTotal     `json:"by_category"`
	ByVendor   []GroupTotal     `json:"by_vendor"`
}

// Aggregate computes sum, mean and per-category/per-vendor sums over the
// records whose amount is present. Deterministic: the same input always
// yields the same keys, order and totals.
func Aggregate(records []entity.InvoiceRecord) Summary {
	sum := Summary{Count: len(records), Total: decimal.Zero}

	catIdx := make(map[string]int)
	venIdx := make(map[string]int)

	for _, r := range records {
		if !r.HasAmount() {
			continue
		}
		amt := *r.TotalAmount
		sum.WithAmount++
		sum.Total = sum.Total.Add(amt)

		addTo := func(groups []GroupTotal, idx map[string]int, label string) []GroupTotal {
			if i, ok := idx[label]; ok {
				groups[i].Total = groups[i].Total.Add(amt)
				return groups
			}
			idx[label] = len(groups)
			return append(groups, GroupTotal{Label: label, Total: amt})
		}
		sum.ByCategory = addTo(sum.ByCategory, catIdx, string(r.Category))
		sum.ByVendor = addTo(sum.ByVendor, venIdx, r.Vendor)
	}

	if sum.WithAmount > 0 {
		mean := sum.Total.Div(decimal.NewFromInt(int64(sum.WithAmount))).Round(2)
		sum.Mean = &mean
	}
	return sum
}
