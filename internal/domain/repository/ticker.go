package repository

import (
	"regexp"
	"strings"

	"TradeInfo/pkg/util"
)

var (
	localTicker   = regexp.MustCompile(`^\d{4}$`)
	foreignTicker = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// tickerSeparators are the delimiters accepted in bulk input, including the
// ideographic comma and the full-width space.
const tickerSeparators = ",、 \t\n\r　"

// IsValidTicker returns true for a 4-digit local code or a 1-5 letter uppercase symbol.
func IsValidTicker(code string) bool {
	return localTicker.MatchString(code) || foreignTicker.MatchString(code)
}

// ParseTickerList splits bulk input and drops anything that is not a valid
// ticker. Input order is kept.
func ParseTickerList(s string) []string {
	fields := util.SplitAny(s, tickerSeparators)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); IsValidTicker(f) {
			out = append(out, f)
		}
	}
	return out
}
