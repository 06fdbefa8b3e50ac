// Package kv implements the three backend planes the engine core is built
// on: a multi-version (MVCC) plane, a single-version plane for metadata and
// counters, and an append-only CDC log. Two backends are provided: an
// in-memory one backed by github.com/google/btree, and an on-disk one
// backed by go.etcd.io/bbolt. Both satisfy the same Backend contract so the
// transaction manager and catalog never know which is in use.
package kv

import (
	"context"
	"io"

	"github.com/reifydb/reifydb/pkg/key"
)

// DeltaKind distinguishes a write from a removal inside a pending write set.
type DeltaKind uint8

const (
	DeltaSet DeltaKind = iota
	DeltaRemove
)

// Delta is one pending mutation against a key, staged by a transaction and
// applied atomically at commit.
type Delta struct {
	Key   key.EncodedKey
	Kind  DeltaKind
	Value []byte
}

// MultiVersionValues is the result of an MV plane read: the stored row
// bytes plus the version at which they were written. A Tombstone entry
// means the key was deleted at that version.
type MultiVersionValues struct {
	Key       key.EncodedKey
	Version   uint64
	Value     []byte
	Tombstone bool
}

// CdcChangeKind mirrors the three shapes a row-level change can take.
type CdcChangeKind uint8

const (
	CdcInsert CdcChangeKind = iota
	CdcUpdate
	CdcDelete
)

// CdcChange is one row-level change within a commit. Pre/Post carry encoded
// row bytes (nil when not applicable: Pre for Insert, Post for Delete).
type CdcChange struct {
	Key  key.EncodedKey
	Kind CdcChangeKind
	Pre  []byte
	Post []byte
}

// CdcSequencedChange attaches a within-commit sequence number to a change,
// strictly ascending within a version.
type CdcSequencedChange struct {
	Sequence uint64
	Change   CdcChange
}

// CdcRecord is the per-commit change record: one per CommitVersion, holding
// every row change produced by that commit in sequence order.
type CdcRecord struct {
	Version   uint64
	Timestamp int64
	Changes   []CdcSequencedChange
}

// MultiVersion is the MVCC plane contract.
type MultiVersion interface {
	// Get returns the row whose (key, v) has the largest v <= version and
	// is not a tombstone. ok is false if no such entry exists.
	Get(k key.EncodedKey, version uint64) (MultiVersionValues, bool, error)
	// Range streams entries in [r.Start, r.End) visible at version,
	// ascending by key.
	Range(ctx context.Context, r key.EncodedKeyRange, version uint64) (Iterator[MultiVersionValues], error)
	// RangeRev is Range in descending key order.
	RangeRev(ctx context.Context, r key.EncodedKeyRange, version uint64) (Iterator[MultiVersionValues], error)
	// Scan iterates every live key in the plane at version.
	Scan(ctx context.Context, version uint64) (Iterator[MultiVersionValues], error)
	ScanRev(ctx context.Context, version uint64) (Iterator[MultiVersionValues], error)
}

// SingleVersion is the plain ordered KV plane: bootstrap metadata, system
// counters, anything outside MVCC. Writes are synchronous and independent
// of the MV plane.
type SingleVersion interface {
	Get(k key.EncodedKey) ([]byte, bool, error)
	Set(k key.EncodedKey, value []byte) error
	Remove(k key.EncodedKey) error
	Range(ctx context.Context, r key.EncodedKeyRange) (Iterator[SingleVersionEntry], error)
}

// SingleVersionEntry is one SV plane row.
type SingleVersionEntry struct {
	Key   key.EncodedKey
	Value []byte
}

// CdcLog is the append-only CDC plane, keyed by CommitVersion.
type CdcLog interface {
	Get(version uint64) (CdcRecord, bool, error)
	Range(ctx context.Context, loVersion, hiVersion uint64) (Iterator[CdcRecord], error)
	Scan(ctx context.Context) (Iterator[CdcRecord], error)
	Count(version uint64) (int, error)
	// Reclaim deletes every CDC record strictly below minVersion. It is
	// not called from the commit path, and the engine runs no sweep that
	// calls it.
	Reclaim(minVersion uint64) error
}

// Iterator is a simple pull-based cursor; callers must call Close when done,
// even on early exit.
type Iterator[T any] interface {
	Next() bool
	Value() T
	Err() error
	io.Closer
}

// Backend is everything the transaction manager and catalog need from
// storage: the three planes, plus one atomic cross-plane commit. The three
// plane interfaces each declare a Get/Range under the same name with
// different signatures, so Backend exposes them as separate accessors
// rather than embedding all three directly into one method set.
type Backend interface {
	MV() MultiVersion
	SV() SingleVersion
	CDC() CdcLog

	// Commit atomically writes deltas into the MV plane (and SV plane for
	// any single-version deltas, if svDeltas is non-empty) at version,
	// along with cdc in one durable step. A reader that observes cdc is
	// guaranteed to also observe every MV write at version and
	// vice-versa.
	Commit(mvDeltas []Delta, svDeltas []Delta, version uint64, cdc CdcRecord) error

	Close() error
}
