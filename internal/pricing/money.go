package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CentPlaces is the number of decimal places amounts are settled to.
const CentPlaces int32 = 2

// CeilCent rounds up to the next cent.
func CeilCent(d decimal.Decimal) decimal.Decimal {
	return d.RoundCeil(CentPlaces)
}

// ParseAmount parses a stored decimal string. Blank or malformed input yields nil.
func ParseAmount(raw string) *decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil
	}
	return &d
}

// MaxZero clamps negative amounts to zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
