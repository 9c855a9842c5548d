package router

import (
	"fmt"
	"math"
)

// FormatAmount renders a monetary amount in billions or millions, one
// decimal place, prefixed by currency: "UGX 2.3B", "UGX 450.0M". The unit
// is chosen on the rounded value, so 999.96M renders as "1.0B".
func FormatAmount(currency string, v float64) string {
	var s string
	if millions := math.Round(math.Abs(v)/1e5) / 10; millions >= 1000 {
		s = fmt.Sprintf("%.1fB", v/1e9)
	} else {
		s = fmt.Sprintf("%.1fM", v/1e6)
	}
	if currency == "" {
		return s
	}
	return currency + " " + s
}
