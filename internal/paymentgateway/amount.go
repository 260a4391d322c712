package paymentgateway

import (
	"fmt"
	"strconv"
	"strings"
)

const minorUnitDigits = 2

// NormalizeAmountToInteger converts a gateway decimal string into minor units ("10.00" -> 1000).
func NormalizeAmountToInteger(value string) (int64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("invalid amount %q: empty", value)
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && frac == "") {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	if len(frac) > minorUnitDigits {
		return 0, fmt.Errorf("invalid amount %q: more than %d decimals", value, minorUnitDigits)
	}
	frac += strings.Repeat("0", minorUnitDigits-len(frac))

	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", value)
		}
	}

	units, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if negative {
		units = -units
	}
	return units, nil
}

// FormatAmount renders minor units as the two-decimal string the gateway expects (1000 -> "10.00").
func FormatAmount(units int64) string {
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}
