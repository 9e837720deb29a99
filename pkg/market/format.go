package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PricePrecision picks display decimals by magnitude.
func PricePrecision(price float64) int32 {
	switch {
	case price >= 1:
		return 2
	case price >= 0.1:
		return 4
	case price >= 0.001:
		return 5
	}
	return 8
}

// FormatPrice renders price with magnitude-based precision and thousands separators.
func FormatPrice(price float64) string {
	fixed := decimal.NewFromFloat(price).StringFixed(PricePrecision(price))
	return groupThousands(fixed)
}

// FormatPercent renders a signed percent with two decimals, e.g. "+2.10%".
func FormatPercent(pct float64) string {
	d := decimal.NewFromFloat(pct).Round(2)
	s := d.StringFixed(2)
	if d.IsPositive() {
		s = "+" + s
	}
	return s + "%"
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return sign + s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}
