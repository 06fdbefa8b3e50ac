package kv

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/reifydb/reifydb/pkg/key"
)

type mvEntry struct {
	key       string
	version   uint64
	value     []byte
	tombstone bool
}

func mvLess(a, b mvEntry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.version < b.version
}

type svEntry struct {
	key   string
	value []byte
}

func svLess(a, b svEntry) bool { return a.key < b.key }

type cdcEntry struct {
	version uint64
	record  CdcRecord
}

func cdcLess(a, b cdcEntry) bool { return a.version < b.version }

// Memory is the in-memory backend: an ordered, range-scannable structure
// per plane backed by github.com/google/btree, standing in for the
// skip-list-based in-memory implementation the behavioral contract
// describes (Go's standard library has no ordered map).
type Memory struct {
	mu  sync.Mutex
	mv  *btree.BTreeG[mvEntry]
	sv  *btree.BTreeG[svEntry]
	cdc *btree.BTreeG[cdcEntry]
}

// NewMemory constructs an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		mv:  btree.NewG(32, mvLess),
		sv:  btree.NewG(32, svLess),
		cdc: btree.NewG(32, cdcLess),
	}
}

func (m *Memory) MV() MultiVersion  { return memoryMV{m} }
func (m *Memory) SV() SingleVersion { return memorySV{m} }
func (m *Memory) CDC() CdcLog       { return memoryCDC{m} }

// Commit atomically applies mvDeltas, svDeltas, and cdc under a single
// mutex, matching the "commit is atomic across MV, SV, and CDC" invariant.
func (m *Memory) Commit(mvDeltas []Delta, svDeltas []Delta, version uint64, cdc CdcRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range mvDeltas {
		e := mvEntry{key: string(d.Key), version: version}
		if d.Kind == DeltaRemove {
			e.tombstone = true
		} else {
			e.value = d.Value
		}
		m.mv.ReplaceOrInsert(e)
	}
	for _, d := range svDeltas {
		if d.Kind == DeltaRemove {
			m.sv.Delete(svEntry{key: string(d.Key)})
		} else {
			m.sv.ReplaceOrInsert(svEntry{key: string(d.Key), value: d.Value})
		}
	}
	if len(cdc.Changes) > 0 {
		m.cdc.ReplaceOrInsert(cdcEntry{version: version, record: cdc})
	}
	return nil
}

func (m *Memory) Close() error { return nil }

var _ Backend = (*Memory)(nil)

// memoryMV implements MultiVersion against the shared Memory state.
type memoryMV struct{ m *Memory }

func (v memoryMV) Get(k key.EncodedKey, version uint64) (MultiVersionValues, bool, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	keyStr := string(k)
	var found mvEntry
	ok := false
	v.m.mv.DescendRange(mvEntry{key: keyStr, version: version}, mvEntry{key: keyStr, version: 0}, func(e mvEntry) bool {
		if e.key != keyStr {
			return false
		}
		found = e
		ok = true
		return false
	})
	if !ok || found.tombstone {
		return MultiVersionValues{}, false, nil
	}
	return MultiVersionValues{Key: k, Version: found.version, Value: found.value}, true, nil
}

func (v memoryMV) Range(ctx context.Context, r key.EncodedKeyRange, version uint64) (Iterator[MultiVersionValues], error) {
	return v.collect(r, version, false)
}

func (v memoryMV) RangeRev(ctx context.Context, r key.EncodedKeyRange, version uint64) (Iterator[MultiVersionValues], error) {
	return v.collect(r, version, true)
}

func (v memoryMV) Scan(ctx context.Context, version uint64) (Iterator[MultiVersionValues], error) {
	return v.Range(ctx, key.EncodedKeyRange{}, version)
}

func (v memoryMV) ScanRev(ctx context.Context, version uint64) (Iterator[MultiVersionValues], error) {
	return v.RangeRev(ctx, key.EncodedKeyRange{}, version)
}

func (v memoryMV) collect(r key.EncodedKeyRange, version uint64, reverse bool) (Iterator[MultiVersionValues], error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	latest := map[string]MultiVersionValues{}
	var order []string

	v.m.mv.Ascend(func(e mvEntry) bool {
		if r.Start != nil && e.key < string(r.Start) {
			return true
		}
		if r.End != nil && e.key >= string(r.End) {
			return true
		}
		if e.version > version {
			return true
		}
		if _, seen := latest[e.key]; !seen {
			order = append(order, e.key)
		}
		latest[e.key] = MultiVersionValues{
			Key: key.EncodedKey(e.key), Version: e.version, Value: e.value, Tombstone: e.tombstone,
		}
		return true
	})

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

// memorySV implements SingleVersion against the shared Memory state.
type memorySV struct{ m *Memory }

func (v memorySV) Get(k key.EncodedKey) ([]byte, bool, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	e, ok := v.m.sv.Get(svEntry{key: string(k)})
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (v memorySV) Set(k key.EncodedKey, value []byte) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	v.m.sv.ReplaceOrInsert(svEntry{key: string(k), value: value})
	return nil
}

func (v memorySV) Remove(k key.EncodedKey) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	v.m.sv.Delete(svEntry{key: string(k)})
	return nil
}

func (v memorySV) Range(ctx context.Context, r key.EncodedKeyRange) (Iterator[SingleVersionEntry], error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	var out []SingleVersionEntry
	v.m.sv.Ascend(func(e svEntry) bool {
		if r.Start != nil && e.key < string(r.Start) {
			return true
		}
		if r.End != nil && e.key >= string(r.End) {
			return true
		}
		out = append(out, SingleVersionEntry{Key: key.EncodedKey(e.key), Value: e.value})
		return true
	})
	return newSliceIterator(out), nil
}

// memoryCDC implements CdcLog against the shared Memory state.
type memoryCDC struct{ m *Memory }

func (v memoryCDC) Get(version uint64) (CdcRecord, bool, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	e, ok := v.m.cdc.Get(cdcEntry{version: version})
	if !ok {
		return CdcRecord{}, false, nil
	}
	return e.record, true, nil
}

func (v memoryCDC) Range(ctx context.Context, loVersion, hiVersion uint64) (Iterator[CdcRecord], error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	var out []CdcRecord
	v.m.cdc.AscendRange(cdcEntry{version: loVersion}, cdcEntry{version: hiVersion}, func(e cdcEntry) bool {
		out = append(out, e.record)
		return true
	})
	return newSliceIterator(out), nil
}

func (v memoryCDC) Scan(ctx context.Context) (Iterator[CdcRecord], error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	var out []CdcRecord
	v.m.cdc.Ascend(func(e cdcEntry) bool {
		out = append(out, e.record)
		return true
	})
	return newSliceIterator(out), nil
}

func (v memoryCDC) Count(version uint64) (int, error) {
	rec, ok, err := v.Get(version)
	if err != nil || !ok {
		return 0, err
	}
	return len(rec.Changes), nil
}

func (v memoryCDC) Reclaim(minVersion uint64) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	var toDelete []cdcEntry
	v.m.cdc.AscendRange(cdcEntry{version: 0}, cdcEntry{version: minVersion}, func(e cdcEntry) bool {
		toDelete = append(toDelete, e)
		return true
	})
	for _, e := range toDelete {
		v.m.cdc.Delete(e)
	}
	return nil
}
