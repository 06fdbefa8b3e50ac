package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/key"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	bolt, err := OpenBolt(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	return map[string]Backend{
		"memory": NewMemory(),
		"bolt":   bolt,
	}
}

func TestMVCCSnapshotRead(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			k := key.Encode(key.Row{PrimitiveID: 1, Number: 1})

			require.NoError(t, backend.Commit([]Delta{{Key: k, Kind: DeltaSet, Value: []byte("x1")}}, nil, 1, CdcRecord{}))
			require.NoError(t, backend.Commit([]Delta{{Key: k, Kind: DeltaSet, Value: []byte("x2")}}, nil, 2, CdcRecord{}))
			require.NoError(t, backend.Commit([]Delta{{Key: k, Kind: DeltaSet, Value: []byte("x3")}}, nil, 3, CdcRecord{}))

			v1, ok, err := backend.MV().Get(k, 1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("x1"), v1.Value)

			v2, ok, err := backend.MV().Get(k, 2)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("x2"), v2.Value)

			// snapshot "between" commits observes the last committed version
			vBetween, ok, err := backend.MV().Get(k, 2)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, v2, vBetween)

			v3, ok, err := backend.MV().Get(k, 3)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("x3"), v3.Value)
		})
	}
}

func TestTombstoneHidesKey(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			k := key.Encode(key.Row{PrimitiveID: 1, Number: 1})
			require.NoError(t, backend.Commit([]Delta{{Key: k, Kind: DeltaSet, Value: []byte("x")}}, nil, 1, CdcRecord{}))
			require.NoError(t, backend.Commit([]Delta{{Key: k, Kind: DeltaRemove}}, nil, 2, CdcRecord{}))

			_, ok, err := backend.MV().Get(k, 2)
			require.NoError(t, err)
			assert.False(t, ok)

			// still visible at the version before deletion
			v1, ok, err := backend.MV().Get(k, 1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("x"), v1.Value)
		})
	}
}

func TestRangeScanOrdersByKey(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			k1 := key.Encode(key.Row{PrimitiveID: 5, Number: 1})
			k2 := key.Encode(key.Row{PrimitiveID: 5, Number: 2})
			k3 := key.Encode(key.Row{PrimitiveID: 5, Number: 3})

			require.NoError(t, backend.Commit([]Delta{
				{Key: k1, Kind: DeltaSet, Value: []byte("a")},
				{Key: k2, Kind: DeltaSet, Value: []byte("b")},
				{Key: k3, Kind: DeltaSet, Value: []byte("c")},
			}, nil, 1, CdcRecord{}))

			r := key.FullScan(key.KindRow)
			it, err := backend.MV().Range(context.Background(), r, 1)
			require.NoError(t, err)
			defer it.Close()

			var got []string
			for it.Next() {
				got = append(got, string(it.Value().Value))
			}
			require.NoError(t, it.Err())
			assert.Equal(t, []string{"a", "b", "c"}, got)
		})
	}
}

func TestSingleVersionPlaneIndependentOfMVCC(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			k := key.Encode(key.TableRowSequence{TableID: 1})

			require.NoError(t, backend.SV().Set(k, []byte{0, 0, 0, 0, 0, 0, 0, 1}))
			v, ok, err := backend.SV().Get(k)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, v)

			require.NoError(t, backend.SV().Remove(k))
			_, ok, err = backend.SV().Get(k)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCdcAtomicityAndOrdering(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			k := key.Encode(key.Row{PrimitiveID: 1, Number: 1})
			rec := CdcRecord{
				Version:   5,
				Timestamp: 1000,
				Changes: []CdcSequencedChange{
					{Sequence: 0, Change: CdcChange{Key: k, Kind: CdcInsert, Post: []byte("p1")}},
					{Sequence: 1, Change: CdcChange{Key: k, Kind: CdcUpdate, Pre: []byte("p1"), Post: []byte("p2")}},
				},
			}
			require.NoError(t, backend.Commit([]Delta{{Key: k, Kind: DeltaSet, Value: []byte("p2")}}, nil, 5, rec))

			got, ok, err := backend.CDC().Get(5)
			require.NoError(t, err)
			require.True(t, ok)
			require.Len(t, got.Changes, 2)
			assert.Equal(t, uint64(0), got.Changes[0].Sequence)
			assert.Equal(t, uint64(1), got.Changes[1].Sequence)
		})
	}
}

func TestCdcReclaimRemovesBelowWatermark(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			k := key.Encode(key.Row{PrimitiveID: 1, Number: 1})
			for v := uint64(1); v <= 3; v++ {
				rec := CdcRecord{Version: v, Changes: []CdcSequencedChange{
					{Sequence: 0, Change: CdcChange{Key: k, Kind: CdcInsert, Post: []byte("x")}},
				}}
				require.NoError(t, backend.Commit(nil, nil, v, rec))
			}

			require.NoError(t, backend.CDC().Reclaim(3))

			_, ok, err := backend.CDC().Get(1)
			require.NoError(t, err)
			assert.False(t, ok)

			_, ok, err = backend.CDC().Get(3)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}
