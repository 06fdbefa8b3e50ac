package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
)

type fixedClock struct{ ms int64 }

func (c fixedClock) NowMillis() int64 { return c.ms }

func newManager(t *testing.T) (*Manager, kv.Backend) {
	t.Helper()
	backend := kv.NewMemory()
	m, err := NewManager(backend, fixedClock{ms: 1000})
	require.NoError(t, err)
	return m, backend
}

func rowKey(n uint64) key.EncodedKey {
	return key.Encode(key.Row{PrimitiveID: 1, Number: key.RowNumber(n)})
}

func TestInsertAndReadOwnWrite(t *testing.T) {
	m, _ := newManager(t)
	k := rowKey(1)

	txn := m.BeginCommand(false)
	txn.Set(k, []byte("a"))
	v, ok, err := txn.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), v.Value)

	require.NoError(t, txn.Commit())

	q := m.BeginQuery()
	v2, ok, err := q.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), v2.Value)
}

func TestOptimisticConflict(t *testing.T) {
	m, _ := newManager(t)
	k := rowKey(1)

	seed := m.BeginCommand(false)
	seed.Set(k, []byte("a"))
	require.NoError(t, seed.Commit())

	t1 := m.BeginCommand(false)
	_, _, err := t1.Get(k)
	require.NoError(t, err)
	t1.Set(k, []byte("b"))

	t2 := m.BeginCommand(false)
	_, _, err = t2.Get(k)
	require.NoError(t, err)
	t2.Set(k, []byte("c"))

	require.NoError(t, t1.Commit())

	err = t2.Commit()
	require.Error(t, err)
	d, ok := err.(*diagnostic.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diagnostic.CodeTxnConflict, d.Code)

	// after retry, t2 observes t1's write
	retry := m.BeginCommand(false)
	v, ok2, err := retry.Get(k)
	require.NoError(t, err)
	require.True(t, ok2)
	assert.Equal(t, []byte("b"), v.Value)
}

func TestCdcProducedOnCommit(t *testing.T) {
	m, backend := newManager(t)
	k := rowKey(1)

	txn := m.BeginCommand(false)
	txn.Set(k, []byte("a"))
	require.NoError(t, txn.Commit())

	rec, ok, err := backend.CDC().Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.Changes, 1)
	assert.Equal(t, kv.CdcInsert, rec.Changes[0].Change.Kind)
}

func TestRemoveProducesDeleteChange(t *testing.T) {
	m, backend := newManager(t)
	k := rowKey(1)

	seed := m.BeginCommand(false)
	seed.Set(k, []byte("a"))
	require.NoError(t, seed.Commit())

	del := m.BeginCommand(false)
	del.Remove(k)
	require.NoError(t, del.Commit())

	rec, ok, err := backend.CDC().Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.Changes, 1)
	assert.Equal(t, kv.CdcDelete, rec.Changes[0].Change.Kind)
	assert.Equal(t, []byte("a"), rec.Changes[0].Change.Pre)
}

func TestSerializableValidatesReadRanges(t *testing.T) {
	m, _ := newManager(t)
	k := rowKey(1)

	seed := m.BeginCommand(false)
	seed.Set(k, []byte("a"))
	require.NoError(t, seed.Commit())

	r := key.FullScan(key.KindRow)

	reader := m.BeginCommand(true)
	_, err := reader.Range(r)
	require.NoError(t, err)

	writer := m.BeginCommand(false)
	writer.Set(k, []byte("b"))
	require.NoError(t, writer.Commit())

	err = reader.Commit()
	require.Error(t, err)
	d, ok := err.(*diagnostic.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diagnostic.CodeTxnConflict, d.Code)
}
