package kv

import (
	"encoding/binary"
	"fmt"
)

// encodeCdcRecord serializes a CdcRecord as a length-prefixed list of
// CdcSequencedChange, per the wire contract: "payload = length-prefixed,
// serialized list of CdcSequencedChange. Storage is allowed to batch-encode
// but must expose the logical record boundaries." Each change carries its
// key and, depending on kind, a pre and/or post row.
func encodeCdcRecord(rec CdcRecord) ([]byte, error) {
	var buf []byte
	buf = putUint64(buf, uint64(rec.Version))
	buf = putInt64(buf, rec.Timestamp)
	buf = putUint32(buf, uint32(len(rec.Changes)))
	for _, sc := range rec.Changes {
		buf = putUint64(buf, sc.Sequence)
		buf = append(buf, byte(sc.Change.Kind))
		buf = putBytes(buf, sc.Change.Key)
		buf = putBytes(buf, sc.Change.Pre)
		buf = putBytes(buf, sc.Change.Post)
	}
	return buf, nil
}

func decodeCdcRecord(b []byte) (CdcRecord, error) {
	var rec CdcRecord
	var err error

	rec.Version, b, err = takeUint64(b)
	if err != nil {
		return rec, err
	}
	var ts uint64
	ts, b, err = takeUint64(b)
	if err != nil {
		return rec, err
	}
	rec.Timestamp = int64(ts)

	var count uint32
	count, b, err = takeUint32(b)
	if err != nil {
		return rec, err
	}

	rec.Changes = make([]CdcSequencedChange, 0, count)
	for i := uint32(0); i < count; i++ {
		var sc CdcSequencedChange
		sc.Sequence, b, err = takeUint64(b)
		if err != nil {
			return rec, err
		}
		if len(b) < 1 {
			return rec, fmt.Errorf("kv: truncated cdc record")
		}
		sc.Change.Kind = CdcChangeKind(b[0])
		b = b[1:]

		sc.Change.Key, b, err = takeBytes(b)
		if err != nil {
			return rec, err
		}
		sc.Change.Pre, b, err = takeBytes(b)
		if err != nil {
			return rec, err
		}
		sc.Change.Post, b, err = takeBytes(b)
		if err != nil {
			return rec, err
		}
		rec.Changes = append(rec.Changes, sc)
	}
	return rec, nil
}

func putUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putInt64(buf []byte, v int64) []byte {
	return putUint64(buf, uint64(v))
}

func putUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putBytes(buf []byte, v []byte) []byte {
	buf = putUint32(buf, uint32(len(v)))
	return append(buf, v...)
}

func takeUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("kv: truncated cdc record")
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func takeUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("kv: truncated cdc record")
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

func takeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := takeUint32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, fmt.Errorf("kv: truncated cdc record")
	}
	if n == 0 {
		return nil, rest, nil
	}
	return rest[:n], rest[n:], nil
}
