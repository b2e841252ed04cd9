package invoicing

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// currencyFraction maps ISO codes with non-2 minor units. Everything else
// divides by 100.
var currencyFraction = map[string]int64{
	"JPY": 1,
	"KRW": 1,
}

var printer = message.NewPrinter(language.English)

// computeTotals derives subtotal, tax and total in cents from the line items
// and a tax rate in basis points. Line totals round per line, tax rounds on
// the subtotal.
func computeTotals(items []LineItem, taxRateBps int) (subtotal, tax, total int64) {
	for i := range items {
		items[i].TotalCents = int64(items[i].Quantity) * items[i].UnitPriceCents
		subtotal += items[i].TotalCents
	}
	tax = subtotal * int64(taxRateBps) / 10_000
	total = subtotal + tax
	return subtotal, tax, total
}

// formatTotal renders a cent amount as a grouped decimal string for display,
// e.g. 1234567 USD -> "USD 12,345.67".
func formatTotal(cents int64, currency string) string {
	div := int64(100)
	if f, ok := currencyFraction[currency]; ok {
		div = f
	}
	if div == 1 {
		return printer.Sprintf("%s %d", currency, cents)
	}
	// Split the sign off first: for amounts between -99 and -1 the whole
	// part is 0 and would swallow the minus.
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / div
	frac := cents % div
	return printer.Sprintf("%s %s%d%s", currency, sign, whole, fmt.Sprintf(".%02d", frac))
}
