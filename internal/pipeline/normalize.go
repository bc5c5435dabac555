package pipeline

import (
	"go-batch-pipeline/internal/model"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize cleans a single field value. Text is trimmed and lower-cased,
// numbers are rounded to two decimal places, anything else is returned as is.
func Normalize(v model.Value) model.Value {
	switch v.Kind() {
	case model.KindText:
		s, _ := v.Text()
		return model.Text(CleanText(s))
	case model.KindNumber:
		n, _ := v.Number()
		return model.Number(Round2(n))
	default:
		return v
	}
}

// CleanText trims surrounding whitespace and applies full Unicode lower-casing.
func CleanText(s string) string {
	// A Caser holds state and must not be shared between goroutines.
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Round2 rounds x to two decimal digits. Ties are broken half-to-even on the
// exact binary value, so 0.125 becomes 0.12 and 2.675 (stored just below the
// tie) becomes 2.67. NaN and infinities are returned unchanged.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return x
	}
	return r
}
