// Package row implements the encoded row format: a schema-fingerprinted
// byte buffer with a fixed-width area for scalar fields, a heap region for
// variable-width fields, and a trailing null bitmap. Encoding is
// deterministic so that the same (Schema, values) pair always produces the
// same bytes, which the catalog relies on to detect no-op updates.
package row

import (
	"encoding/binary"
	"hash/fnv"
)

// Type identifies the primitive representation of a field.
type Type uint8

const (
	TypeBool Type = iota + 1
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeUtf8
	TypeBlob
	TypeDecimal
	TypeDate
	TypeTime
)

// FixedWidth returns the field's width in the fixed area, or 0 if the type
// is variable-width (in which case the fixed area instead holds a 4-byte
// offset and a 4-byte length into the heap).
func (t Type) FixedWidth() int {
	switch t {
	case TypeBool, TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64, TypeDate, TypeTime:
		return 8
	case TypeUtf8, TypeBlob, TypeDecimal:
		return 0
	default:
		return 0
	}
}

func (t Type) IsVariableWidth() bool {
	return t.FixedWidth() == 0
}

// Field is one declared column of a Schema.
type Field struct {
	Name string
	Type Type
}

// Schema is the ordered list of fields a row's fixed layout is built from.
// Its Fingerprint content-addresses the schema: the registry promises the
// same Schema content always yields the same fingerprint, forever.
type Schema struct {
	Fields []Field
}

// Fingerprint deterministically hashes the field names and types. It does
// not depend on map iteration order or pointer identity, only on Fields'
// content, so it is stable across process restarts.
func (s Schema) Fingerprint() uint64 {
	h := fnv.New64a()
	for _, f := range s.Fields {
		h.Write([]byte(f.Name))
		h.Write([]byte{0})
		var tb [1]byte
		tb[0] = byte(f.Type)
		h.Write(tb[:])
	}
	return h.Sum64()
}

func (s Schema) fixedAreaSize() int {
	size := 0
	for _, f := range s.Fields {
		if f.Type.IsVariableWidth() {
			size += 8 // 4-byte offset + 4-byte length
		} else {
			size += f.Type.FixedWidth()
		}
	}
	return size
}

func (s Schema) nullBitmapSize() int {
	return (len(s.Fields) + 7) / 8
}

func fingerprintBytes(fp uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], fp)
	return b[:]
}
