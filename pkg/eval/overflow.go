package eval

import (
	"fmt"
	"math"

	"github.com/reifydb/reifydb/pkg/diagnostic"
)

// OverflowPolicy governs what happens when a numeric push or arithmetic
// result doesn't fit its target type.
type OverflowPolicy uint8

const (
	// OverflowUndefined pushes an undefined value instead of failing;
	// the default for computed expressions.
	OverflowUndefined OverflowPolicy = iota
	OverflowError
	OverflowSaturate
)

// AddInt64 applies a, b per policy. ok=false with no error means "push
// undefined", matching OverflowUndefined.
func AddInt64(policy OverflowPolicy, a, b int64, columnName string) (int64, bool, error) {
	sum := a + b
	overflowed := (b > 0 && sum < a) || (b < 0 && sum > a)
	if !overflowed {
		return sum, true, nil
	}
	switch policy {
	case OverflowError:
		return 0, false, diagnostic.New(diagnostic.CodeNumberOutOfRange, fmt.Sprintf("addition overflows column %q", columnName))
	case OverflowSaturate:
		if b > 0 {
			return math.MaxInt64, true, nil
		}
		return math.MinInt64, true, nil
	default:
		return 0, false, nil
	}
}

// MulInt64 multiplies a, b per policy.
func MulInt64(policy OverflowPolicy, a, b int64, columnName string) (int64, bool, error) {
	if a == 0 || b == 0 {
		return 0, true, nil
	}
	product := a * b
	overflowed := product/b != a
	if !overflowed {
		return product, true, nil
	}
	switch policy {
	case OverflowError:
		return 0, false, diagnostic.New(diagnostic.CodeNumberOutOfRange, fmt.Sprintf("multiplication overflows column %q", columnName))
	case OverflowSaturate:
		if (a > 0) == (b > 0) {
			return math.MaxInt64, true, nil
		}
		return math.MinInt64, true, nil
	default:
		return 0, false, nil
	}
}
