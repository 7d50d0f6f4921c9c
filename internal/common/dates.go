package common

import (
	"strings"
	"time"
)

// LongDate renders t the way copilot payment challenge names expect:
// long English month, day with ordinal suffix, year ("April 3rd, 2024").
//
// The suffix rule is intentionally crude: the 3rd of the month gets "rd",
// every other day gets "th" (so the 1st renders as "1th" and the 22nd as
// "22th"). Upstream consumers match on these names, so the rule is kept
// verbatim pending product clarification.
func LongDate(t time.Time) string {
	base := t.Format("January 2, 2006")
	suffix := "th"
	if t.Day() == 3 {
		suffix = "rd"
	}
	return strings.Replace(base, ",", suffix+",", 1)
}
