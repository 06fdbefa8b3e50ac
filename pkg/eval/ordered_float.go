// Package eval implements the expression evaluator: it turns an Expression
// tree plus a ColumnEvaluationContext into a single Column aligned to the
// context's row count.
package eval

import (
	"math"

	"github.com/reifydb/reifydb/pkg/diagnostic"
)

// OrderedFloat gives float64 a total order: -0 is normalized to 0 and NaN
// is rejected at construction, so sort and equality comparisons never have
// to special-case either. Bit patterns, not raw float comparison, drive
// Compare, matching IEEE-754's monotonic-when-sign-extended bit layout.
type OrderedFloat float64

// NewOrderedFloat normalizes -0 to 0 and rejects NaN.
func NewOrderedFloat(f float64) (OrderedFloat, error) {
	if f != f {
		return 0, diagnostic.New(diagnostic.CodeNumberInvalid, "NaN is not a valid ReifyDB float value")
	}
	if f == 0 {
		f = 0
	}
	return OrderedFloat(f), nil
}

// Compare returns -1, 0, or 1 using the float's bit pattern with the sign
// bit flipped across the whole word, the same trick used for ordering
// signed integers in the key codec: it makes negative floats sort before
// positive ones and preserves magnitude order within each half.
func (a OrderedFloat) Compare(b OrderedFloat) int {
	ba := floatBits(float64(a))
	bb := floatBits(float64(b))
	if ba < bb {
		return -1
	}
	if ba > bb {
		return 1
	}
	return 0
}

func floatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}
