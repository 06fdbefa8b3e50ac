package kv

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/reifydb/reifydb/pkg/key"
)

var (
	bucketMV  = []byte("mv")
	bucketSV  = []byte("sv")
	bucketCDC = []byte("cdc")
)

// Bolt is the on-disk backend, one bbolt database with one bucket per
// plane.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if absent) a bbolt-backed backend rooted at
// dataDir.
func OpenBolt(dataDir string) (*Bolt, error) {
	path := filepath.Join(dataDir, "reifydb.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: failed to open backend: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketMV, bucketSV, bucketCDC} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("kv: failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) MV() MultiVersion  { return boltMV{b} }
func (b *Bolt) SV() SingleVersion { return boltSV{b} }
func (b *Bolt) CDC() CdcLog       { return boltCDC{b} }
func (b *Bolt) Close() error      { return b.db.Close() }

var _ Backend = (*Bolt)(nil)

// mvStorageKey appends the version (big-endian, so byte order matches
// numeric order) after the encoded key, so all versions of one key sort
// together ascending within the bucket.
func mvStorageKey(k key.EncodedKey, version uint64) []byte {
	out := make([]byte, 0, len(k)+8)
	out = append(out, k...)
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], version)
	return append(out, v[:]...)
}

func splitMVStorageKey(stored []byte) (key.EncodedKey, uint64) {
	if len(stored) < 8 {
		return nil, 0
	}
	k := stored[:len(stored)-8]
	v := binary.BigEndian.Uint64(stored[len(stored)-8:])
	return key.EncodedKey(k), v
}

const tombstoneMarker = byte(0xFF)

func encodeMVValue(tombstone bool, value []byte) []byte {
	if tombstone {
		return []byte{tombstoneMarker}
	}
	return append([]byte{0x00}, value...)
}

func decodeMVValue(stored []byte) (value []byte, tombstone bool) {
	if len(stored) == 0 {
		return nil, true
	}
	if stored[0] == tombstoneMarker {
		return nil, true
	}
	return stored[1:], false
}

type boltMV struct{ b *Bolt }

func (v boltMV) Get(k key.EncodedKey, version uint64) (MultiVersionValues, bool, error) {
	var result MultiVersionValues
	found := false
	err := v.b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketMV).Cursor()
		seek := mvStorageKey(k, version)
		sk, sv := c.Seek(seek)
		// Seek lands on the first key >= seek; if it's an exact
		// match for (k, version) use it, otherwise step back one to
		// find the largest version < version for the same key.
		if sk != nil {
			gotKey, gotVersion := splitMVStorageKey(sk)
			if string(gotKey) == string(k) && gotVersion == version {
				val, tomb := decodeMVValue(sv)
				if !tomb {
					result = MultiVersionValues{Key: k, Version: gotVersion, Value: val}
					found = true
				}
				return nil
			}
		}
		pk, pv := c.Prev()
		if pk == nil {
			return nil
		}
		gotKey, gotVersion := splitMVStorageKey(pk)
		if string(gotKey) != string(k) {
			return nil
		}
		val, tomb := decodeMVValue(pv)
		if tomb {
			return nil
		}
		result = MultiVersionValues{Key: k, Version: gotVersion, Value: val}
		found = true
		return nil
	})
	return result, found, err
}

func (v boltMV) Range(ctx context.Context, r key.EncodedKeyRange, version uint64) (Iterator[MultiVersionValues], error) {
	return v.collect(r, version, false)
}

func (v boltMV) RangeRev(ctx context.Context, r key.EncodedKeyRange, version uint64) (Iterator[MultiVersionValues], error) {
	return v.collect(r, version, true)
}

func (v boltMV) Scan(ctx context.Context, version uint64) (Iterator[MultiVersionValues], error) {
	return v.Range(ctx, key.EncodedKeyRange{}, version)
}

func (v boltMV) ScanRev(ctx context.Context, version uint64) (Iterator[MultiVersionValues], error) {
	return v.RangeRev(ctx, key.EncodedKeyRange{}, version)
}

func (v boltMV) collect(r key.EncodedKeyRange, version uint64, reverse bool) (Iterator[MultiVersionValues], error) {
	latest := map[string]MultiVersionValues{}
	var order []string

	err := v.b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketMV).Cursor()
		for sk, sv := c.First(); sk != nil; sk, sv = c.Next() {
			gotKey, gotVersion := splitMVStorageKey(sk)
			if r.Start != nil && string(gotKey) < string(r.Start) {
				continue
			}
			if r.End != nil && string(gotKey) >= string(r.End) {
				continue
			}
			if gotVersion > version {
				continue
			}
			ks := string(gotKey)
			if _, seen := latest[ks]; !seen {
				order = append(order, ks)
			}
			val, tomb := decodeMVValue(sv)
			latest[ks] = MultiVersionValues{Key: gotKey, Version: gotVersion, Value: val, Tombstone: tomb}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]MultiVersionValues, 0, len(order))
	for _, k := range order {
		if val := latest[k]; !val.Tombstone {
			out = append(out, val)
		}
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return newSliceIterator(out), nil
}

type boltSV struct{ b *Bolt }

func (v boltSV) Get(k key.EncodedKey) ([]byte, bool, error) {
	var out []byte
	found := false
	err := v.b.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(bucketSV).Get(k)
		if val == nil {
			return nil
		}
		out = append([]byte{}, val...)
		found = true
		return nil
	})
	return out, found, err
}

func (v boltSV) Set(k key.EncodedKey, value []byte) error {
	return v.b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSV).Put(k, value)
	})
}

func (v boltSV) Remove(k key.EncodedKey) error {
	return v.b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSV).Delete(k)
	})
}

func (v boltSV) Range(ctx context.Context, r key.EncodedKeyRange) (Iterator[SingleVersionEntry], error) {
	var out []SingleVersionEntry
	err := v.b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSV).Cursor()
		for k, val := c.First(); k != nil; k, val = c.Next() {
			if r.Start != nil && string(k) < string(r.Start) {
				continue
			}
			if r.End != nil && string(k) >= string(r.End) {
				continue
			}
			out = append(out, SingleVersionEntry{Key: append(key.EncodedKey{}, k...), Value: append([]byte{}, val...)})
		}
		return nil
	})
	return newSliceIterator(out), err
}

type boltCDC struct{ b *Bolt }

func cdcStorageKey(version uint64) []byte {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], version)
	return v[:]
}

func (v boltCDC) Get(version uint64) (CdcRecord, bool, error) {
	var rec CdcRecord
	found := false
	err := v.b.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(bucketCDC).Get(cdcStorageKey(version))
		if val == nil {
			return nil
		}
		decoded, err := decodeCdcRecord(val)
		if err != nil {
			return err
		}
		rec = decoded
		found = true
		return nil
	})
	return rec, found, err
}

func (v boltCDC) Range(ctx context.Context, loVersion, hiVersion uint64) (Iterator[CdcRecord], error) {
	var out []CdcRecord
	err := v.b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCDC).Cursor()
		lo := cdcStorageKey(loVersion)
		hi := cdcStorageKey(hiVersion)
		for k, val := c.Seek(lo); k != nil && string(k) < string(hi); k, val = c.Next() {
			rec, err := decodeCdcRecord(val)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return newSliceIterator(out), err
}

func (v boltCDC) Scan(ctx context.Context) (Iterator[CdcRecord], error) {
	var out []CdcRecord
	err := v.b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCDC).Cursor()
		for k, val := c.First(); k != nil; k, val = c.Next() {
			rec, err := decodeCdcRecord(val)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return newSliceIterator(out), err
}

func (v boltCDC) Count(version uint64) (int, error) {
	rec, ok, err := v.Get(version)
	if err != nil || !ok {
		return 0, err
	}
	return len(rec.Changes), nil
}

func (v boltCDC) Reclaim(minVersion uint64) error {
	return v.b.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCDC).Cursor()
		hi := cdcStorageKey(minVersion)
		var toDelete [][]byte
		for k, _ := c.First(); k != nil && string(k) < string(hi); k, _ = c.Next() {
			toDelete = append(toDelete, append([]byte{}, k...))
		}
		for _, k := range toDelete {
			if err := tx.Bucket(bucketCDC).Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Commit writes mvDeltas, svDeltas, and cdc inside one bbolt transaction,
// which is bbolt's unit of atomicity — this is exactly what gives the
// backend cross-plane atomic commit.
func (b *Bolt) Commit(mvDeltas []Delta, svDeltas []Delta, version uint64, cdc CdcRecord) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		mvBucket := tx.Bucket(bucketMV)
		for _, d := range mvDeltas {
			storageKey := mvStorageKey(d.Key, version)
			tombstone := d.Kind == DeltaRemove
			if err := mvBucket.Put(storageKey, encodeMVValue(tombstone, d.Value)); err != nil {
				return err
			}
		}

		svBucket := tx.Bucket(bucketSV)
		for _, d := range svDeltas {
			if d.Kind == DeltaRemove {
				if err := svBucket.Delete(d.Key); err != nil {
					return err
				}
				continue
			}
			if err := svBucket.Put(d.Key, d.Value); err != nil {
				return err
			}
		}

		if len(cdc.Changes) > 0 {
			encoded, err := encodeCdcRecord(cdc)
			if err != nil {
				return err
			}
			if err := tx.Bucket(bucketCDC).Put(cdcStorageKey(version), encoded); err != nil {
				return err
			}
		}
		return nil
	})
}
