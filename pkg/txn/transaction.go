package txn

import (
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
)

// QueryTransaction holds only a read snapshot: no write set, no commit
// path, just a version to read consistently against.
type QueryTransaction struct {
	manager  *Manager
	snapshot uint64
}

func (t *QueryTransaction) Snapshot() uint64 { return t.snapshot }

// Get reads k as of the transaction's snapshot.
func (t *QueryTransaction) Get(k key.EncodedKey) (kv.MultiVersionValues, bool, error) {
	return t.manager.backend.MV().Get(k, t.snapshot)
}

// Range scans r as of the transaction's snapshot.
func (t *QueryTransaction) Range(r key.EncodedKeyRange) (kv.Iterator[kv.MultiVersionValues], error) {
	return t.manager.backend.MV().Range(nil, r, t.snapshot)
}

// CommandTransaction carries a read snapshot, a pending write set, and (in
// serializable mode) the set of ranges read so far. Catalog DDL shadow
// state is layered on top by pkg/catalog, which embeds CommandTransaction
// rather than this package depending on the catalog.
type CommandTransaction struct {
	manager      *Manager
	snapshot     uint64
	pending      map[string]pendingWrite
	readRanges   []key.EncodedKeyRange
	serializable bool
	done         bool
}

func (t *CommandTransaction) Snapshot() uint64 { return t.snapshot }

// Get reads the pending set first (last write in the transaction wins),
// then falls through to the MV plane at the transaction's snapshot.
func (t *CommandTransaction) Get(k key.EncodedKey) (kv.MultiVersionValues, bool, error) {
	if w, ok := t.pending[string(k)]; ok {
		if w.value.Remove {
			return kv.MultiVersionValues{}, false, nil
		}
		return kv.MultiVersionValues{Key: k, Version: t.snapshot, Value: w.value.Value}, true, nil
	}
	return t.manager.backend.MV().Get(k, t.snapshot)
}

// Range scans r, merging the MV range at the snapshot with any pending
// deltas overlaying it. If serializable tracking is enabled, the range is
// recorded so commit can re-validate it.
func (t *CommandTransaction) Range(r key.EncodedKeyRange) ([]kv.MultiVersionValues, error) {
	if t.serializable {
		t.readRanges = append(t.readRanges, r)
	}

	it, err := t.manager.backend.MV().Range(nil, r, t.snapshot)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	merged := map[string]kv.MultiVersionValues{}
	var order []string
	for it.Next() {
		v := it.Value()
		merged[string(v.Key)] = v
		order = append(order, string(v.Key))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	for ks, w := range t.pending {
		k := key.EncodedKey(ks)
		if !r.Contains(k) {
			continue
		}
		if w.value.Remove {
			if _, existed := merged[ks]; existed {
				delete(merged, ks)
			}
			continue
		}
		if _, existed := merged[ks]; !existed {
			order = append(order, ks)
		}
		merged[ks] = kv.MultiVersionValues{Key: k, Version: t.snapshot, Value: w.value.Value}
	}

	out := make([]kv.MultiVersionValues, 0, len(merged))
	seen := map[string]bool{}
	for _, ks := range order {
		if seen[ks] {
			continue
		}
		seen[ks] = true
		if v, ok := merged[ks]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Set stages a write; the last write to a key inside the transaction wins.
func (t *CommandTransaction) Set(k key.EncodedKey, value []byte) {
	t.pending[string(k)] = pendingWrite{key: k, value: DeltaValue{Value: value}}
}

// Remove stages a removal.
func (t *CommandTransaction) Remove(k key.EncodedKey) {
	t.pending[string(k)] = pendingWrite{key: k, value: DeltaValue{Remove: true}}
}

// PendingKeyCount reports how many distinct keys this transaction has
// staged so far, the quantity a session's max_transaction_keys limit
// bounds before the commit is rejected as too large.
func (t *CommandTransaction) PendingKeyCount() int {
	return len(t.pending)
}

// Commit validates and applies the pending write set atomically. After
// Commit returns (successfully or not) the transaction is done and must
// not be reused.
func (t *CommandTransaction) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.manager.commit(t)
}

// Rollback discards pending state with no external effect.
func (t *CommandTransaction) Rollback() {
	t.done = true
	t.pending = nil
	t.readRanges = nil
}
