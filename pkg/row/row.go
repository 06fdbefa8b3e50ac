package row

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Row is an encoded row: fingerprint | fixed_area | heap | null_bitmap.
type Row []byte

// Encode produces the row bytes for values aligned 1:1 with schema.Fields.
// A nil entry in values means the field is null; its fixed-area bytes (or
// offset/length pair) are written as zero and the corresponding null-bitmap
// bit is cleared.
func Encode(schema Schema, values []any) (Row, error) {
	if len(values) != len(schema.Fields) {
		return nil, fmt.Errorf("row: expected %d values, got %d", len(schema.Fields), len(values))
	}

	fixed := make([]byte, schema.fixedAreaSize())
	var heap []byte
	bitmap := make([]byte, schema.nullBitmapSize())

	offset := 0
	for i, f := range schema.Fields {
		v := values[i]
		width := f.Type.FixedWidth()
		if v == nil {
			if f.Type.IsVariableWidth() {
				offset += 8
			} else {
				offset += width
			}
			continue
		}
		setBit(bitmap, i)

		if f.Type.IsVariableWidth() {
			data, err := encodeVariable(f.Type, v)
			if err != nil {
				return nil, err
			}
			binary.LittleEndian.PutUint32(fixed[offset:offset+4], uint32(len(heap)))
			binary.LittleEndian.PutUint32(fixed[offset+4:offset+8], uint32(len(data)))
			heap = append(heap, data...)
			offset += 8
			continue
		}

		if err := encodeFixed(f.Type, v, fixed[offset:offset+width]); err != nil {
			return nil, err
		}
		offset += width
	}

	out := make([]byte, 0, 8+len(fixed)+len(heap)+len(bitmap))
	out = append(out, fingerprintBytes(schema.Fingerprint())...)
	out = append(out, fixed...)
	out = append(out, heap...)
	out = append(out, bitmap...)
	return out, nil
}

// Decode reverses Encode, returning one entry per field; null fields decode
// to nil.
func Decode(schema Schema, r Row) ([]any, error) {
	if len(r) < 8 {
		return nil, fmt.Errorf("row: truncated, missing fingerprint")
	}
	fp := binary.LittleEndian.Uint64(r[:8])
	if fp != schema.Fingerprint() {
		return nil, fmt.Errorf("row: fingerprint mismatch, schema was likely changed")
	}

	fixedSize := schema.fixedAreaSize()
	bitmapSize := schema.nullBitmapSize()
	if len(r) < 8+fixedSize+bitmapSize {
		return nil, fmt.Errorf("row: truncated row body")
	}
	fixed := r[8 : 8+fixedSize]
	bitmap := r[len(r)-bitmapSize:]
	heap := r[8+fixedSize : len(r)-bitmapSize]

	values := make([]any, len(schema.Fields))
	offset := 0
	for i, f := range schema.Fields {
		width := f.Type.FixedWidth()
		defined := bitIsSet(bitmap, i)
		if !defined {
			values[i] = nil
			if f.Type.IsVariableWidth() {
				offset += 8
			} else {
				offset += width
			}
			continue
		}

		if f.Type.IsVariableWidth() {
			start := binary.LittleEndian.Uint32(fixed[offset : offset+4])
			length := binary.LittleEndian.Uint32(fixed[offset+4 : offset+8])
			if int(start+length) > len(heap) {
				return nil, fmt.Errorf("row: heap slice out of bounds for field %q", f.Name)
			}
			data := heap[start : start+length]
			v, err := decodeVariable(f.Type, data)
			if err != nil {
				return nil, err
			}
			values[i] = v
			offset += 8
			continue
		}

		v, err := decodeFixed(f.Type, fixed[offset:offset+width])
		if err != nil {
			return nil, err
		}
		values[i] = v
		offset += width
	}
	return values, nil
}

func setBit(bitmap []byte, i int) {
	bitmap[i/8] |= 1 << uint(i%8)
}

func bitIsSet(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}

func encodeFixed(t Type, v any, dst []byte) error {
	switch t {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return typeErr(t, v)
		}
		if b {
			dst[0] = 1
		}
	case TypeInt8:
		n, ok := v.(int8)
		if !ok {
			return typeErr(t, v)
		}
		dst[0] = byte(n)
	case TypeUint8:
		n, ok := v.(uint8)
		if !ok {
			return typeErr(t, v)
		}
		dst[0] = n
	case TypeInt16:
		n, ok := v.(int16)
		if !ok {
			return typeErr(t, v)
		}
		binary.LittleEndian.PutUint16(dst, uint16(n))
	case TypeUint16:
		n, ok := v.(uint16)
		if !ok {
			return typeErr(t, v)
		}
		binary.LittleEndian.PutUint16(dst, n)
	case TypeInt32:
		n, ok := v.(int32)
		if !ok {
			return typeErr(t, v)
		}
		binary.LittleEndian.PutUint32(dst, uint32(n))
	case TypeUint32:
		n, ok := v.(uint32)
		if !ok {
			return typeErr(t, v)
		}
		binary.LittleEndian.PutUint32(dst, n)
	case TypeFloat32:
		f, ok := v.(float32)
		if !ok {
			return typeErr(t, v)
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
	case TypeInt64, TypeDate, TypeTime:
		n, ok := v.(int64)
		if !ok {
			return typeErr(t, v)
		}
		binary.LittleEndian.PutUint64(dst, uint64(n))
	case TypeUint64:
		n, ok := v.(uint64)
		if !ok {
			return typeErr(t, v)
		}
		binary.LittleEndian.PutUint64(dst, n)
	case TypeFloat64:
		f, ok := v.(float64)
		if !ok {
			return typeErr(t, v)
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(f))
	default:
		return fmt.Errorf("row: %v is not a fixed-width type", t)
	}
	return nil
}

func decodeFixed(t Type, src []byte) (any, error) {
	switch t {
	case TypeBool:
		return src[0] != 0, nil
	case TypeInt8:
		return int8(src[0]), nil
	case TypeUint8:
		return src[0], nil
	case TypeInt16:
		return int16(binary.LittleEndian.Uint16(src)), nil
	case TypeUint16:
		return binary.LittleEndian.Uint16(src), nil
	case TypeInt32:
		return int32(binary.LittleEndian.Uint32(src)), nil
	case TypeUint32:
		return binary.LittleEndian.Uint32(src), nil
	case TypeFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src)), nil
	case TypeInt64, TypeDate, TypeTime:
		return int64(binary.LittleEndian.Uint64(src)), nil
	case TypeUint64:
		return binary.LittleEndian.Uint64(src), nil
	case TypeFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(src)), nil
	default:
		return nil, fmt.Errorf("row: %v is not a fixed-width type", t)
	}
}

func encodeVariable(t Type, v any) ([]byte, error) {
	switch t {
	case TypeUtf8, TypeDecimal:
		s, ok := v.(string)
		if !ok {
			return nil, typeErr(t, v)
		}
		return []byte(s), nil
	case TypeBlob:
		b, ok := v.([]byte)
		if !ok {
			return nil, typeErr(t, v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("row: %v is not a variable-width type", t)
	}
}

func decodeVariable(t Type, data []byte) (any, error) {
	switch t {
	case TypeUtf8, TypeDecimal:
		return string(data), nil
	case TypeBlob:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	default:
		return nil, fmt.Errorf("row: %v is not a variable-width type", t)
	}
}

func typeErr(t Type, v any) error {
	return fmt.Errorf("row: value %v (%T) does not match declared type %v", v, v, t)
}
