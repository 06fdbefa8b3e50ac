// Package key defines the encoded-key layout (version | kind | payload),
// the concrete key families the catalog and backend operate on, and the
// EncodableKey contract every key family implements.
package key

import (
	"bytes"

	"github.com/reifydb/reifydb/pkg/keycode"
)

// Version is the only key format version this build understands. Decode
// rejects any key whose leading byte does not match.
const Version uint8 = 1

// Kind enumerates key families. Each carries a well-known two-byte
// version|kind prefix so a scan can be constrained to exactly one family.
type Kind uint8

const (
	KindRow Kind = iota + 1
	KindTableRowSequence
	KindRingBufferRowSequence
	KindNamespace
	KindNamespaceTable // secondary index: namespace name -> id
	KindTable
	KindTableColumn
	KindView
	KindViewColumn
	KindRingBuffer
	KindRingBufferMetadata
	KindSequence
	KindSequenceRow
	KindPolicy
	KindPolicyOp
	KindSecurityPolicy
	KindSecurityPolicyOp
	KindMigration
	KindFlow
	KindFlowNode
	KindFlowNodeState
	KindSubscription
	KindSubscriptionColumn
	KindCdc
	KindSystemVersion
	KindRingBufferRow
)

// EncodedKey is an ordered byte sequence: version:u8 | kind:u8 | payload.
// Lexicographic comparison of EncodedKey values matches the logical order
// of the keys they represent, which range scans over any backend plane
// depend on.
type EncodedKey []byte

// Compare implements the order EncodedKey relies on for range scans.
func (k EncodedKey) Compare(other EncodedKey) int {
	return bytes.Compare(k, other)
}

func (k EncodedKey) Kind() (Kind, bool) {
	if len(k) < 2 || k[0] != Version {
		return 0, false
	}
	return Kind(k[1]), true
}

// EncodedKeyRange is a half-open [Start, End) byte range, bounded so a
// backend plane need only support a single primitive range operation.
type EncodedKeyRange struct {
	Start EncodedKey
	End   EncodedKey
}

// Contains reports whether k falls in [r.Start, r.End).
func (r EncodedKeyRange) Contains(k EncodedKey) bool {
	if r.Start != nil && bytes.Compare(k, r.Start) < 0 {
		return false
	}
	if r.End != nil && bytes.Compare(k, r.End) >= 0 {
		return false
	}
	return true
}

// EncodableKey is implemented by every concrete key family. KIND identifies
// the family; Encode appends the family's payload (the caller has already
// written version and kind).
type EncodableKey interface {
	KIND() Kind
	EncodePayload(buf []byte) []byte
}

// Encode produces the full EncodedKey for k: version, kind, then payload.
func Encode(k EncodableKey) EncodedKey {
	buf := make([]byte, 0, 16)
	buf = keycode.PutUint8(buf, Version)
	buf = keycode.PutUint8(buf, uint8(k.KIND()))
	buf = k.EncodePayload(buf)
	return buf
}

// prefixOf returns the two-byte version|kind prefix shared by every key of
// kind. Used by FullScan and as the basis of PrefixScan.
func prefixOf(kind Kind) []byte {
	return []byte{Version, uint8(kind)}
}

// FullScan returns the range covering every key of the given kind.
func FullScan(kind Kind) EncodedKeyRange {
	start := prefixOf(kind)
	end := append(append([]byte{}, start...))
	end = incremented(end)
	return EncodedKeyRange{Start: start, End: end}
}

// PrefixScan returns the range covering every key of kind whose payload
// begins with prefix.
func PrefixScan(kind Kind, prefix []byte) EncodedKeyRange {
	start := append(prefixOf(kind), prefix...)
	end := incremented(append([]byte{}, start...))
	return EncodedKeyRange{Start: start, End: end}
}

// incremented returns the smallest byte string strictly greater than every
// string having b as a prefix, i.e. b with its last non-0xFF byte
// incremented and everything after it dropped. If b is all 0xFF (or empty),
// there is no finite successor and nil (unbounded end) is returned.
func incremented(b []byte) []byte {
	out := append([]byte{}, b...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
