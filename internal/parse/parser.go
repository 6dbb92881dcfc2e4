// Package parse turns raw extracted text into best-effort invoice fields.
// Every field is independent and defaultable: a pattern that does not match
// is normal control flow, never an error.
package parse

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billscan/constants"
	"billscan/internal/entity"
	"billscan/internal/rules"
)

// Fields is the partial record produced from one text blob.
type Fields struct {
	Vendor        string
	InvoiceNumber string
	Date          time.Time
	DateMatched   bool
	TotalAmount   *decimal.Decimal
	Currency      constants.Currency
}

type Parser struct {
	rules  *rules.Compiled
	logger *slog.Logger
}

func NewParser(rs *rules.Compiled, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{rules: rs, logger: logger}
}

// Parse scans text for amount, date, invoice number and vendor.
// ingestedAt supplies the date default when no date pattern matches.
func (p *Parser) Parse(text string, ingestedAt time.Time) Fields {
	f := Fields{
		Vendor:        entity.VendorUnknown,
		InvoiceNumber: entity.InvoiceNumberNotFound,
		Date:          ingestedAt,
		Currency:      p.rules.DefaultCurrency,
	}

	if amount, marker, ok := p.extractAmount(text); ok {
		f.TotalAmount = &amount
		if cur, detected := constants.CurrencyForMarker(marker); detected {
			f.Currency = cur
		}
	}

	if dt, ok := p.extractDate(text); ok {
		f.Date = dt
		f.DateMatched = true
	}

	for _, re := range p.rules.InvoiceNumber {
		if m := re.FindStringSubmatch(text); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
			f.InvoiceNumber = strings.TrimSpace(m[1])
			break
		}
	}

	for _, re := range p.rules.Vendor {
		if m := re.FindStringSubmatch(text); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
			f.Vendor = strings.TrimSpace(m[1])
			break
		}
	}

	return f
}

type amountCandidate struct {
	value  decimal.Decimal
	marker string
	line   int
}

// extractAmount implements the documented amount policy: an amount on a
// "total"-labeled line beats everything else; with no total label the
// maximum value wins (largest number is most likely the grand total — a
// heuristic, not a guarantee); absence stays absent, never zero.
func (p *Parser) extractAmount(text string) (decimal.Decimal, string, bool) {
	var all []amountCandidate
	var totalLine []amountCandidate
	haveTotalLine := false

	for i, line := range strings.Split(text, "\n") {
		cands := p.lineAmounts(line, i)
		if len(cands) == 0 {
			continue
		}
		all = append(all, cands...)
		if !haveTotalLine && p.rules.TotalLabel.MatchString(line) {
			totalLine = cands
			haveTotalLine = true
		}
	}

	if haveTotalLine {
		best := maxCandidate(totalLine)
		return best.value, best.marker, true
	}
	if len(all) == 0 {
		return decimal.Decimal{}, "", false
	}
	best := maxCandidate(all)
	return best.value, best.marker, true
}

// lineAmounts applies the ordered amount patterns to one line. A span
// matched by an earlier (more specific) pattern is dead to later ones, so
// "1,234.00" yields one candidate, not three.
func (p *Parser) lineAmounts(line string, lineNo int) []amountCandidate {
	var cands []amountCandidate
	var taken [][2]int

	for _, re := range p.rules.Amount {
		for _, m := range re.FindAllStringSubmatchIndex(line, -1) {
			// group 2 is the numeric token
			numStart, numEnd := m[4], m[5]
			if numStart < 0 || overlaps(taken, numStart, numEnd) {
				continue
			}
			raw := strings.ReplaceAll(line[numStart:numEnd], ",", "")
			v, err := decimal.NewFromString(raw)
			if err != nil || v.IsNegative() {
				continue
			}
			marker := ""
			if m[2] >= 0 {
				marker = line[m[2]:m[3]]
			}
			taken = append(taken, [2]int{numStart, numEnd})
			cands = append(cands, amountCandidate{value: v, marker: marker, line: lineNo})
		}
	}
	return cands
}

func overlaps(taken [][2]int, start, end int) bool {
	for _, t := range taken {
		if start < t[1] && end > t[0] {
			return true
		}
	}
	return false
}

// maxCandidate returns the largest value; on ties the earliest occurrence.
func maxCandidate(cands []amountCandidate) amountCandidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.value.GreaterThan(best.value) {
			best = c
		}
	}
	return best
}

// dateLayouts tried against a separator-normalized match, day-first before
// month-first to match the tool's home market.
var dateLayouts = []string{"2/1/2006", "2/1/06", "1/2/2006", "1/2/06"}

func (p *Parser) extractDate(text string) (time.Time, bool) {
	for _, re := range p.rules.Date {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw := m[1]
			norm := strings.NewReplacer("-", "/", " ", "/").Replace(raw)
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, norm); err == nil {
					return t, true
				}
			}
			// first date-shaped substring decides; if it will not parse as
			// a calendar date we fall through to the next occurrence
		}
	}
	return time.Time{}, false
}
