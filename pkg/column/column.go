// Package column implements the columnar batch model that flows through
// query execution: Columns is an ordered, uniform-row-count sequence of
// named Column values, each backed by a typed, nullable ColumnData
// container.
package column

import "github.com/reifydb/reifydb/pkg/row"

// Columns is a batch: every Column in it shares the same row count.
type Columns struct {
	Items []Column
}

// RowCount returns the shared row count of the batch, or 0 if it has no
// columns.
func (c Columns) RowCount() int {
	if len(c.Items) == 0 {
		return 0
	}
	return c.Items[0].Data.Len()
}

// Column is one named column of a batch. Name points back into source text
// for diagnostics, mirroring the fragment convention used elsewhere (see
// diagnostic.Fragment).
type Column struct {
	Name string
	Data ColumnData
}

// ColumnData is the typed, nullable container for one column's values. The
// zero value is not meaningful; construct via Undefined or by appending
// with the typed Push* methods.
type ColumnData struct {
	Type    row.Type
	undef   bool
	len     int
	bools   []bool
	ints    []int64
	uints   []uint64
	floats  []float64
	strs    []string
	blobs   [][]byte
	bitvec  []uint64 // one bit per row, 1 = defined; nil means "all defined"
}

// Undefined constructs the type-erased all-null column of length n. It
// upgrades in place to a concrete typed container on first Push, preserving
// the n leading undefined slots so indices already emitted by upstream
// operators remain stable.
func Undefined(n int) ColumnData {
	return ColumnData{undef: true, len: n}
}

// Len returns the column's row count.
func (d ColumnData) Len() int { return d.len }

// IsUndefined reports whether the column has never had a concrete value
// pushed into it.
func (d ColumnData) IsUndefined() bool { return d.undef }

func (d *ColumnData) ensureBitvec() {
	if d.bitvec != nil {
		return
	}
	words := (d.len + 63) / 64
	d.bitvec = make([]uint64, words)
	for i := 0; i < d.len; i++ {
		setBit(d.bitvec, i)
	}
}

func setBit(bv []uint64, i int) { bv[i/64] |= 1 << uint(i%64) }

func clearBit(bv []uint64, i int) { bv[i/64] &^= 1 << uint(i%64) }

func bitSet(bv []uint64, i int) bool {
	if bv == nil {
		return true
	}
	return bv[i/64]&(1<<uint(i%64)) != 0
}

// IsDefined reports whether row i of this column carries a value.
func (d ColumnData) IsDefined(i int) bool {
	if d.undef {
		return false
	}
	return bitSet(d.bitvec, i)
}

// upgrade converts an Undefined(n) column to a concrete typed container,
// backfilling n undefined slots, before the first real push.
func (d *ColumnData) upgrade(t row.Type) {
	if !d.undef {
		return
	}
	n := d.len
	d.undef = false
	d.Type = t
	d.len = 0
	d.ensureBitvecForUpgrade(n)
	switch t {
	case row.TypeBool:
		d.bools = make([]bool, n)
	case row.TypeUtf8, row.TypeDecimal:
		d.strs = make([]string, n)
	case row.TypeBlob:
		d.blobs = make([][]byte, n)
	case row.TypeFloat32, row.TypeFloat64:
		d.floats = make([]float64, n)
	case row.TypeInt8, row.TypeInt16, row.TypeInt32, row.TypeInt64, row.TypeDate, row.TypeTime:
		d.ints = make([]int64, n)
	default:
		d.uints = make([]uint64, n)
	}
	d.len = n
}

func (d *ColumnData) ensureBitvecForUpgrade(n int) {
	words := (n + 63) / 64
	d.bitvec = make([]uint64, words)
}

// PushBool appends a bool value, upgrading from Undefined if needed.
func (d *ColumnData) PushBool(v bool, defined bool) {
	d.upgrade(row.TypeBool)
	d.bools = append(d.bools, v)
	d.pushDefined(defined)
}

// PushInt appends a signed integer value.
func (d *ColumnData) PushInt(t row.Type, v int64, defined bool) {
	d.upgrade(t)
	d.ints = append(d.ints, v)
	d.pushDefined(defined)
}

// PushUint appends an unsigned integer value.
func (d *ColumnData) PushUint(t row.Type, v uint64, defined bool) {
	d.upgrade(t)
	d.uints = append(d.uints, v)
	d.pushDefined(defined)
}

// PushFloat appends a floating point value.
func (d *ColumnData) PushFloat(t row.Type, v float64, defined bool) {
	d.upgrade(t)
	d.floats = append(d.floats, v)
	d.pushDefined(defined)
}

// PushString appends a utf8 or decimal value.
func (d *ColumnData) PushString(t row.Type, v string, defined bool) {
	d.upgrade(t)
	d.strs = append(d.strs, v)
	d.pushDefined(defined)
}

// PushBlob appends a blob value.
func (d *ColumnData) PushBlob(v []byte, defined bool) {
	d.upgrade(row.TypeBlob)
	d.blobs = append(d.blobs, v)
	d.pushDefined(defined)
}

func (d *ColumnData) pushDefined(defined bool) {
	d.ensureBitvec()
	i := d.len
	d.len++
	if words := (d.len + 63) / 64; words > len(d.bitvec) {
		grown := make([]uint64, words)
		copy(grown, d.bitvec)
		d.bitvec = grown
	}
	if defined {
		setBit(d.bitvec, i)
	} else {
		clearBit(d.bitvec, i)
	}
}

// Bool returns row i's bool value; the second return is false when the
// field is undefined at that row.
func (d ColumnData) Bool(i int) (bool, bool) {
	if !d.IsDefined(i) {
		return false, false
	}
	return d.bools[i], true
}

// AppendFrom copies row i of src onto the end of d, preserving definedness
// and type. It upgrades d from Undefined on the first concrete value the
// same way Push does, so callers can build a fresh column row-by-row from
// an existing one (row selection, sort reordering, join probing).
func (d *ColumnData) AppendFrom(src ColumnData, i int) {
	defined := src.IsDefined(i)
	if src.undef {
		d.PushInt(d.targetTypeOr(src.Type), 0, false)
		return
	}
	switch {
	case src.Type == row.TypeBool:
		v, _ := src.Bool(i)
		d.PushBool(v, defined)
	case src.Type == row.TypeUtf8 || src.Type == row.TypeDecimal:
		v, _ := src.String(i)
		d.PushString(src.Type, v, defined)
	case src.Type == row.TypeBlob:
		v, _ := src.Blob(i)
		d.PushBlob(v, defined)
	case src.Type == row.TypeFloat32 || src.Type == row.TypeFloat64:
		v, _ := src.Float(i)
		d.PushFloat(src.Type, v, defined)
	case src.Type == row.TypeInt8 || src.Type == row.TypeInt16 || src.Type == row.TypeInt32 ||
		src.Type == row.TypeInt64 || src.Type == row.TypeDate || src.Type == row.TypeTime:
		v, _ := src.Int(i)
		d.PushInt(src.Type, v, defined)
	default:
		v, _ := src.Uint(i)
		d.PushUint(src.Type, v, defined)
	}
}

func (d *ColumnData) targetTypeOr(t row.Type) row.Type {
	if !d.undef {
		return d.Type
	}
	return t
}

// Int returns row i's signed integer value.
func (d ColumnData) Int(i int) (int64, bool) {
	if !d.IsDefined(i) {
		return 0, false
	}
	return d.ints[i], true
}

// Uint returns row i's unsigned integer value.
func (d ColumnData) Uint(i int) (uint64, bool) {
	if !d.IsDefined(i) {
		return 0, false
	}
	return d.uints[i], true
}

// Float returns row i's floating point value.
func (d ColumnData) Float(i int) (float64, bool) {
	if !d.IsDefined(i) {
		return 0, false
	}
	return d.floats[i], true
}

// String returns row i's utf8/decimal value.
func (d ColumnData) String(i int) (string, bool) {
	if !d.IsDefined(i) {
		return "", false
	}
	return d.strs[i], true
}

// Blob returns row i's blob value.
func (d ColumnData) Blob(i int) ([]byte, bool) {
	if !d.IsDefined(i) {
		return nil, false
	}
	return d.blobs[i], true
}
