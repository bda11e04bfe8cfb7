package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Form keys read by the resolvers. Everything else in the bag is ignored.
var (
	complexityKeys = []string{"complexity", "designComplexity"}
	quantityKeys   = []string{"amount_of_products", "amountOfProducts", "quantity"}
)

// FormData is the opaque key/value bag submitted with a request.
type FormData map[string]any

// Complexity returns the first non-empty complexity value.
func (f FormData) Complexity() string {
	v, _ := f.first(complexityKeys)
	return v
}

// Quantity returns the first non-empty quantity value parsed as an integer.
// The boolean reports whether any quantity key was present; a present but
// non-numeric value parses to 0.
func (f FormData) Quantity() (int64, bool) {
	raw, ok := f.first(quantityKeys)
	if !ok {
		return 0, false
	}
	return parseQuantity(raw), true
}

func (f FormData) first(keys []string) (string, bool) {
	for _, key := range keys {
		v, ok := f[key]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s != "" {
			return s, true
		}
	}
	return "", false
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case bool:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// parseQuantity truncates a numeric value to an integer: "60", "60.9" and
// "6e1" are 60. Otherwise the leading digits are used ("60 pcs" is 60) and
// anything without them is 0.
func parseQuantity(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if d, err := decimal.NewFromString(raw); err == nil {
		if d.Abs().GreaterThan(maxQuantity) {
			return 0
		}
		return d.IntPart()
	}
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(raw[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// DecodeFormData parses a JSON object into FormData keeping numbers exact.
func DecodeFormData(raw []byte) (FormData, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return FormData{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var out FormData
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode form data: %w", err)
	}
	if out == nil {
		out = FormData{}
	}
	return out, nil
}
