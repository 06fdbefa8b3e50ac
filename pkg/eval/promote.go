package eval

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/row"
)

func bitAt(bv []uint64, i int) bool {
	if bv == nil {
		return true
	}
	return bv[i/64]&(1<<uint(i%64)) != 0
}

func isFloatType(t row.Type) bool {
	return t == row.TypeFloat32 || t == row.TypeFloat64
}

func isIntegerType(t row.Type) bool {
	switch t {
	case row.TypeInt8, row.TypeInt16, row.TypeInt32, row.TypeInt64,
		row.TypeUint8, row.TypeUint16, row.TypeUint32, row.TypeUint64:
		return true
	}
	return false
}

func isStringType(t row.Type) bool {
	return t == row.TypeUtf8 || t == row.TypeDecimal
}

func isSignedType(t row.Type) bool {
	switch t {
	case row.TypeInt8, row.TypeInt16, row.TypeInt32, row.TypeInt64:
		return true
	}
	return false
}

// promote implements the numeric promotion lattice: narrower widens to
// wider, signed/unsigned merges to the signed supertype, and floats
// dominate integers.
func promote(a, b row.Type) row.Type {
	if isFloatType(a) || isFloatType(b) {
		return row.TypeFloat64
	}
	if isSignedType(a) || isSignedType(b) {
		return row.TypeInt64
	}
	return row.TypeUint64
}

func asFloat(d column.ColumnData, i int) float64 {
	if isFloatType(d.Type) {
		v, _ := d.Float(i)
		return v
	}
	if isSignedType(d.Type) {
		v, _ := d.Int(i)
		return float64(v)
	}
	v, _ := d.Uint(i)
	return float64(v)
}

func asInt64(d column.ColumnData, i int) int64 {
	if isSignedType(d.Type) {
		v, _ := d.Int(i)
		return v
	}
	if isFloatType(d.Type) {
		v, _ := d.Float(i)
		return int64(v)
	}
	v, _ := d.Uint(i)
	return int64(v)
}

// castColumn converts src to target, applying policy on loss. Only a small
// set of scalar conversions is supported; anything else is a diagnostic
// rather than a silent no-op.
func castColumn(src column.ColumnData, target string, policy OverflowPolicy, columnName string) (column.ColumnData, error) {
	n := src.Len()
	switch target {
	case "int64":
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			if !src.IsDefined(i) {
				d.PushInt(row.TypeInt64, 0, false)
				continue
			}
			d.PushInt(row.TypeInt64, asInt64(src, i), true)
		}
		return d, nil
	case "float64":
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			if !src.IsDefined(i) {
				d.PushFloat(row.TypeFloat64, 0, false)
				continue
			}
			d.PushFloat(row.TypeFloat64, asFloat(src, i), true)
		}
		return d, nil
	case "utf8":
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			if !src.IsDefined(i) {
				d.PushString(row.TypeUtf8, "", false)
				continue
			}
			s, _ := src.String(i)
			if s == "" && !isStringType(src.Type) {
				s = fmt.Sprintf("%v", formatScalar(src, i))
			}
			d.PushString(row.TypeUtf8, s, true)
		}
		return d, nil
	default:
		return column.ColumnData{}, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unsupported cast target %q for column %q", target, columnName))
	}
}

func formatScalar(d column.ColumnData, i int) any {
	if isFloatType(d.Type) {
		v, _ := d.Float(i)
		return v
	}
	if isIntegerType(d.Type) {
		return asInt64(d, i)
	}
	b, _ := d.Bool(i)
	return b
}
