// Package slots holds the deterministic extractors that turn free-text replies into slot values.
package slots

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	objectIDRegex     = regexp.MustCompile(`[a-fA-F0-9]{24}`)
	signedAmountRegex = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)
	amountRegex       = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	spaceRegex        = regexp.MustCompile(`\s+`)
)

const descriptionCutset = " \t-:=$,;"

// Item is one itemized line of a quote category.
type Item struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// ParseObjectID returns the first 24-character hexadecimal run in text.
func ParseObjectID(text string) (string, bool) {
	id := objectIDRegex.FindString(text)
	if id == "" {
		return "", false
	}
	return strings.ToLower(id), true
}

// ParseAmount returns the first decimal number in text. Comma and period are both
// accepted as the decimal separator. A leading minus sign is preserved so callers
// can reject negative values.
func ParseAmount(text string) (float64, bool) {
	match := signedAmountRegex.FindString(text)
	if match == "" {
		return 0, false
	}
	return toFloat(match)
}

// ParseItemLine splits "description amount" lines. The last number in the text is
// the amount; the remaining text is the description.
func ParseItemLine(text string) (Item, bool) {
	locs := amountRegex.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return Item{}, false
	}
	last := locs[len(locs)-1]
	amount, ok := toFloat(text[last[0]:last[1]])
	if !ok || amount < 0 {
		return Item{}, false
	}
	desc := text[:last[0]] + " " + text[last[1]:]
	desc = spaceRegex.ReplaceAllString(desc, " ")
	desc = strings.Trim(desc, descriptionCutset)
	if desc == "" {
		return Item{}, false
	}
	return Item{Description: desc, Amount: amount}, true
}

// ParseSelection parses a 1-based option number in the range [1, count].
func ParseSelection(text string, count int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > count {
		return 0, false
	}
	return n, true
}

// HasNumber reports whether text contains any digit run.
func HasNumber(text string) bool {
	return amountRegex.MatchString(text)
}

func toFloat(token string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
