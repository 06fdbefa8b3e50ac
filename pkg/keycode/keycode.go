// Package keycode implements the order-preserving binary primitives that
// every key family in pkg/key is built from: fixed-width big-endian integers
// with sign-bit flipping for signed types, an optional bitwise complement
// for descending-scan fields, and a zero-escaped terminator encoding for
// variable-length byte strings. Every encoder here is total (it never
// fails); decoders return an error only on truncation.
package keycode

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned by every Decode* function when the input is
// shorter than the field it is asked to decode.
var ErrTruncated = errors.New("keycode: truncated input")

// PutUint64 appends a big-endian, order-preserving encoding of v.
// Unsigned integers are naturally order-preserving in big-endian form.
func PutUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// DecodeUint64 reads a value written by PutUint64.
func DecodeUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrTruncated
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

// PutInt64 appends a big-endian encoding of v with the sign bit flipped, so
// that the unsigned byte order of the result matches the signed numeric
// order of v (the standard "flip the top bit" trick).
func PutInt64(buf []byte, v int64) []byte {
	u := uint64(v) ^ (1 << 63)
	return PutUint64(buf, u)
}

// DecodeInt64 reads a value written by PutInt64.
func DecodeInt64(b []byte) (int64, []byte, error) {
	u, rest, err := DecodeUint64(b)
	if err != nil {
		return 0, nil, err
	}
	return int64(u ^ (1 << 63)), rest, nil
}

// PutUint32 appends a big-endian, order-preserving u32.
func PutUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// DecodeUint32 reads a value written by PutUint32.
func DecodeUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, ErrTruncated
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

// PutUint8 appends a single byte.
func PutUint8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

// DecodeUint8 reads a single byte.
func DecodeUint8(b []byte) (uint8, []byte, error) {
	if len(b) < 1 {
		return 0, nil, ErrTruncated
	}
	return b[0], b[1:], nil
}

// Complement returns a copy of an order-preserving encoding with every bit
// flipped, reversing its sort order; b itself is left unchanged. Used for fields that must sort descending by
// default, such as row sequences read newest-first.
func Complement(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = ^c
	}
	return out
}

// PutBytesOrdered appends a variable-length byte string encoded so that
// lexicographic order on the encoding matches lexicographic order on the
// original bytes: every 0x00 byte in the input is escaped as 0x00 0xFF, and
// the whole field is terminated by 0x00 0x00. This is the standard
// order-preserving escaping scheme for variable-length fields embedded in a
// larger ordered key.
func PutBytesOrdered(buf []byte, v []byte) []byte {
	for _, c := range v {
		if c == 0x00 {
			buf = append(buf, 0x00, 0xFF)
		} else {
			buf = append(buf, c)
		}
	}
	return append(buf, 0x00, 0x00)
}

// DecodeBytesOrdered reads a field written by PutBytesOrdered, returning the
// original bytes and whatever remains of the input after the terminator.
func DecodeBytesOrdered(b []byte) ([]byte, []byte, error) {
	var out []byte
	for i := 0; i < len(b); i++ {
		if b[i] == 0x00 {
			if i+1 >= len(b) {
				return nil, nil, ErrTruncated
			}
			switch b[i+1] {
			case 0xFF:
				out = append(out, 0x00)
				i++
			case 0x00:
				return out, b[i+2:], nil
			default:
				return nil, nil, ErrTruncated
			}
			continue
		}
		out = append(out, b[i])
	}
	return nil, nil, ErrTruncated
}
