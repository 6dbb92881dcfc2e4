package constants

import "strings"

// Currency is the enumerated currency token carried on a record.
type Currency string

const (
	INR           Currency = "INR"
	USD           Currency = "USD"
	EUR           Currency = "EUR"
	OtherCurrency Currency = "Other"
)

// CurrencyForMarker maps a currency marker found next to an amount
// ("₹", "Rs", "$", "EUR", ...) to its enumerated token.
func CurrencyForMarker(marker string) (Currency, bool) {
	switch strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(marker), ".")) {
	case "₹", "RS", "INR":
		return INR, true
	case "$", "USD":
		return USD, true
	case "€", "EUR":
		return EUR, true
	case "":
		return OtherCurrency, false
	default:
		return OtherCurrency, true
	}
}

// CanonicalizeCurrency normalizes user-supplied currency input onto the enum.
func CanonicalizeCurrency(input string) Currency {
	if c, ok := CurrencyForMarker(input); ok {
		switch c {
		case INR, USD, EUR:
			return c
		}
	}
	return OtherCurrency
}
