package column

import "github.com/reifydb/reifydb/pkg/row"

// Option is the nullable wrapper used while evaluating expressions: Inner
// holds concrete values regardless of definedness (entries behind an unset
// bitvec bit are placeholders and must not be read), and Bitvec marks which
// rows are actually defined. Bitvec == nil means "all rows defined" — the
// common case, kept distinguishable from "all rows null" so a binary op
// doesn't have to allocate a bitvec just to prove there's nothing to do.
type Option struct {
	Inner  ColumnData
	Bitvec []uint64
	Len    int
}

// UnwrapOption splits a ColumnData into its inner container and definedness
// bitmap, the first step of evaluating a binary or unary operator over
// nullable operands.
func UnwrapOption(d ColumnData) Option {
	return Option{Inner: d, Bitvec: d.bitvec, Len: d.len}
}

// IsAllNull reports whether every row of this operand is null, letting a
// binary op short-circuit to an all-null result without touching Inner
// (whose storage may be uninitialized placeholder values for an
// Undefined-derived column).
func (o Option) IsAllNull() bool {
	if o.Inner.undef {
		return true
	}
	if o.Bitvec == nil {
		return o.Len == 0
	}
	for i := 0; i < o.Len; i++ {
		if bitSet(o.Bitvec, i) {
			return false
		}
	}
	return true
}

// Defined reports whether row i is defined in this operand.
func (o Option) Defined(i int) bool { return bitSet(o.Bitvec, i) }

// CombineBitvecs ANDs two operand bitmaps together, the rule for a binary
// op's result definedness: a row is defined in the result only if both
// operands were defined at that row.
func CombineBitvecs(a, b Option, n int) []uint64 {
	if a.Bitvec == nil && b.Bitvec == nil {
		return nil
	}
	words := (n + 63) / 64
	out := make([]uint64, words)
	for i := 0; i < n; i++ {
		if bitSet(a.Bitvec, i) && bitSet(b.Bitvec, i) {
			setBit(out, i)
		}
	}
	return out
}

// RewrapBool builds a concrete bool ColumnData from raw values and a
// definedness bitmap, the final step after evaluating a binary op over
// unwrapped operands.
func RewrapBool(values []bool, bitvec []uint64) ColumnData {
	d := ColumnData{Type: row.TypeBool, len: len(values), bools: values, bitvec: bitvec}
	return d
}
