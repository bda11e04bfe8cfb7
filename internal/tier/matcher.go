package tier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags the structural form of a tier label.
type Kind int

const (
	// KindNamed is a bare word label such as "basic" or "ultimate".
	KindNamed Kind = iota
	// KindBounded is a closed range label such as "51-75".
	KindBounded
	// KindAtLeast is an open range label such as "101+".
	KindAtLeast
	// KindAbove is a strictly-greater label such as ">101".
	KindAbove
)

func (k Kind) String() string {
	switch k {
	case KindBounded:
		return "bounded"
	case KindAtLeast:
		return "at_least"
	case KindAbove:
		return "above"
	default:
		return "named"
	}
}

// Range is the parsed form of a tier label.
type Range struct {
	Kind  Kind
	Min   int64
	Max   int64
	Label string
}

// Entry is a single row of a tier table: a label and the amount it carries.
type Entry struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

var (
	boundedPattern = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)
	atLeastPattern = regexp.MustCompile(`^(\d+)\s*\+$`)
	abovePattern   = regexp.MustCompile(`^>\s*(\d+)$`)
)

// Parse classifies a label. Patterns are tried in a fixed order: bounded,
// at-least, above. Anything else is a named label.
func Parse(label string) Range {
	trimmed := strings.TrimSpace(label)
	if m := boundedPattern.FindStringSubmatch(trimmed); m != nil {
		lo, errLo := strconv.ParseInt(m[1], 10, 64)
		hi, errHi := strconv.ParseInt(m[2], 10, 64)
		if errLo == nil && errHi == nil {
			return Range{Kind: KindBounded, Min: lo, Max: hi, Label: trimmed}
		}
	}
	if m := atLeastPattern.FindStringSubmatch(trimmed); m != nil {
		if lo, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return Range{Kind: KindAtLeast, Min: lo, Label: trimmed}
		}
	}
	if m := abovePattern.FindStringSubmatch(trimmed); m != nil {
		if lo, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return Range{Kind: KindAbove, Min: lo, Label: trimmed}
		}
	}
	return Range{Kind: KindNamed, Label: trimmed}
}

// Contains reports whether quantity falls inside the range. Named ranges never
// contain a quantity.
func (r Range) Contains(quantity int64) bool {
	if quantity < 0 {
		return false
	}
	switch r.Kind {
	case KindBounded:
		return quantity >= r.Min && quantity <= r.Max
	case KindAtLeast:
		return quantity >= r.Min
	case KindAbove:
		return quantity > r.Min
	default:
		return false
	}
}

// MatchQuantity finds the amount for quantity. A bounded range containing the
// quantity wins immediately, in table order. Otherwise the open-ended
// candidate with the largest lower bound wins; "N+" and ">N" compete for the
// same slot and an equal bound keeps the earlier entry.
func MatchQuantity(quantity int64, entries []Entry) (decimal.Decimal, bool) {
	if quantity < 0 {
		return decimal.Zero, false
	}
	var (
		best    *Entry
		bestMin int64
	)
	for i := range entries {
		r := Parse(entries[i].Label)
		if !r.Contains(quantity) {
			continue
		}
		if r.Kind == KindBounded {
			return entries[i].Amount, true
		}
		if best == nil || r.Min > bestMin {
			best = &entries[i]
			bestMin = r.Min
		}
	}
	if best == nil {
		return decimal.Zero, false
	}
	return best.Amount, true
}

// MatchComplexity finds the amount whose label equals level, ignoring case.
func MatchComplexity(level string, entries []Entry) (decimal.Decimal, bool) {
	wanted := strings.TrimSpace(level)
	if wanted == "" {
		return decimal.Zero, false
	}
	for _, e := range entries {
		if strings.EqualFold(strings.TrimSpace(e.Label), wanted) {
			return e.Amount, true
		}
	}
	return decimal.Zero, false
}
