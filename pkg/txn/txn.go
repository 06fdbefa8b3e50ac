// Package txn implements the transaction manager: version allocation,
// the pending write set, optimistic (and optional serializable) conflict
// validation, and atomic commit through pkg/kv.
package txn

import (
	"sync"
	"time"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
	"github.com/reifydb/reifydb/pkg/log"
)

// Clock supplies wall-clock time in milliseconds since epoch for CDC
// timestamps, per the core's consumed-interface contract.
type Clock interface {
	NowMillis() int64
}

type systemClock struct{}

func (systemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// SystemClock is the default Clock, backed by the OS wall clock.
var SystemClock Clock = systemClock{}

// DeltaValue is a pending write's value: either a row to set or a removal.
type DeltaValue struct {
	Remove bool
	Value  []byte
}

// Manager owns version allocation and the commit critical section for one
// backend. Version allocation and validation are both short, serialized
// operations guarded by the same mutex; snapshot reads never take it.
type Manager struct {
	backend kv.Backend
	clock   Clock

	mu      sync.Mutex
	current uint64
}

var systemVersionKey = key.Encode(key.SystemVersion{})

// NewManager constructs a Manager over backend, recovering the last
// committed version from the single-version plane so restarts resume
// numbering rather than reusing versions.
func NewManager(backend kv.Backend, clock Clock) (*Manager, error) {
	if clock == nil {
		clock = SystemClock
	}
	m := &Manager{backend: backend, clock: clock}

	raw, ok, err := backend.SV().Get(systemVersionKey)
	if err != nil {
		return nil, err
	}
	if ok && len(raw) == 8 {
		m.current = decodeVersion(raw)
	}
	return m, nil
}

// CurrentVersion returns the latest committed version, used as the read
// snapshot for a new transaction.
func (m *Manager) CurrentVersion() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// BeginQuery starts a read-only transaction pinned to the latest committed
// version.
func (m *Manager) BeginQuery() *QueryTransaction {
	return &QueryTransaction{manager: m, snapshot: m.CurrentVersion()}
}

// BeginCommand starts a read-write transaction. serializable enables
// read-range tracking and validation at commit; the default session keeps
// this off, favoring optimistic write-write conflict detection alone.
func (m *Manager) BeginCommand(serializable bool) *CommandTransaction {
	return &CommandTransaction{
		manager:      m,
		snapshot:     m.CurrentVersion(),
		pending:      map[string]pendingWrite{},
		serializable: serializable,
	}
}

type pendingWrite struct {
	key   key.EncodedKey
	value DeltaValue
}

func decodeVersion(raw []byte) uint64 {
	var v uint64
	for _, b := range raw {
		v = v<<8 | uint64(b)
	}
	return v
}

func encodeVersion(v uint64) []byte {
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// commit performs version allocation, validation, CDC materialization, and
// the atomic backend write, under the manager's commit mutex. It is called
// by CommandTransaction.Commit.
func (m *Manager) commit(txn *CommandTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(txn.pending) == 0 && len(txn.readRanges) == 0 {
		return nil
	}

	vw := m.current + 1
	vr := txn.snapshot

	for _, w := range txn.pending {
		if err := m.validateKey(w.key, vr, vw); err != nil {
			return err
		}
	}
	if txn.serializable {
		for _, r := range txn.readRanges {
			if err := m.validateRange(r, vr, vw); err != nil {
				return err
			}
		}
	}

	mvDeltas := make([]kv.Delta, 0, len(txn.pending))
	changes := make([]kv.CdcSequencedChange, 0, len(txn.pending))
	seq := uint64(0)
	for _, w := range txn.pending {
		pre, hadPre, err := m.backend.MV().Get(w.key, vr)
		if err != nil {
			return err
		}

		var d kv.Delta
		var change kv.CdcChange
		change.Key = w.key
		if hadPre {
			change.Pre = pre.Value
		}

		if w.value.Remove {
			d = kv.Delta{Key: w.key, Kind: kv.DeltaRemove}
			change.Kind = kv.CdcDelete
		} else {
			d = kv.Delta{Key: w.key, Kind: kv.DeltaSet, Value: w.value.Value}
			change.Post = w.value.Value
			if hadPre {
				change.Kind = kv.CdcUpdate
			} else {
				change.Kind = kv.CdcInsert
			}
		}
		mvDeltas = append(mvDeltas, d)
		changes = append(changes, kv.CdcSequencedChange{Sequence: seq, Change: change})
		seq++
	}

	rec := kv.CdcRecord{Version: vw, Timestamp: m.clock.NowMillis(), Changes: changes}
	svDeltas := []kv.Delta{{Key: systemVersionKey, Kind: kv.DeltaSet, Value: encodeVersion(vw)}}

	if err := m.backend.Commit(mvDeltas, svDeltas, vw, rec); err != nil {
		return err
	}
	m.current = vw
	log.WithVersion(vw)
	return nil
}

// validateKey implements the optimistic check: if any version exists with
// v_r < v <= v_w-1 for this key (the last committed version before the one
// about to be taken), the transaction conflicts.
func (m *Manager) validateKey(k key.EncodedKey, vr, vw uint64) error {
	latest, ok, err := m.backend.MV().Get(k, vw-1)
	if err != nil {
		return err
	}
	if ok && latest.Version > vr {
		return diagnostic.New(diagnostic.CodeTxnConflict, "optimistic conflict: key written by a transaction committed after this transaction's snapshot")
	}
	return nil
}

// validateRange implements serializable mode's read-set validation: every
// key currently visible in the tracked range must not have been written
// after vr, or a concurrent transaction could have invalidated what this
// transaction's logic assumed while reading the range.
func (m *Manager) validateRange(r key.EncodedKeyRange, vr, vw uint64) error {
	it, err := m.backend.MV().Range(nil, r, vw-1)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		v := it.Value()
		if v.Version > vr {
			return diagnostic.New(diagnostic.CodeTxnConflict, "serializable conflict: a row in a previously read range changed after this transaction's snapshot")
		}
	}
	return it.Err()
}
