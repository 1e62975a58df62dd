// Package quote prices a collected quote and commits it to the backend.
package quote

import (
	"math"
	"strconv"
	"strings"

	"quote-orchestrator/internal/session"
	"quote-orchestrator/internal/slots"
)

// TaxMultiplier applies the 21% VAT to the pre-tax total.
const TaxMultiplier = 1.21

// Totals are the derived amounts of a quote.
type Totals struct {
	Cost    float64
	WithTax float64
}

// ComputeTotals sums labor and every item of every category.
func ComputeTotals(c *session.Context) Totals {
	cost := c.Labor()
	for _, cat := range session.Categories {
		cost += Sum(c.Items(cat))
	}
	return Totals{Cost: cost, WithTax: cost * TaxMultiplier}
}

// Sum adds the amounts of items.
func Sum(items []slots.Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return total
}

// FormatMoney renders v as pesos with dot grouping and two decimals, e.g. $1.815,00.
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(math.Round(v * 100))
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var sb strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	return sign + "$" + sb.String() + "," + pad2(frac)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
