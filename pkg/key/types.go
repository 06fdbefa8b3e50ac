package key

import "github.com/reifydb/reifydb/pkg/keycode"

// RowNumber is a 64-bit per-primitive row identifier, allocated from a
// per-primitive sequence (table or ring buffer).
type RowNumber uint64

// Row addresses a single row of a table or ring buffer. PrimitiveID is the
// owning TableId or RingBufferId; the two share one numeric id space so a
// Row key alone fully determines what it refers to, per the "a key fully
// determines the primitive and row it refers to" invariant.
type Row struct {
	PrimitiveID uint64
	Number      RowNumber
}

func (k Row) KIND() Kind { return KindRow }
func (k Row) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.PrimitiveID)
	buf = keycode.PutUint64(buf, uint64(k.Number))
	return buf
}

func DecodeRow(b EncodedKey) (Row, error) {
	_, rest, err := expectPrefix(b, KindRow)
	if err != nil {
		return Row{}, err
	}
	primitive, rest, err := keycode.DecodeUint64(rest)
	if err != nil {
		return Row{}, err
	}
	num, _, err := keycode.DecodeUint64(rest)
	if err != nil {
		return Row{}, err
	}
	return Row{PrimitiveID: primitive, Number: RowNumber(num)}, nil
}

// TableRowSequence holds the next-row-number counter for a table, stored in
// the single-version plane so it survives restart without MVCC.
type TableRowSequence struct{ TableID uint64 }

func (k TableRowSequence) KIND() Kind { return KindTableRowSequence }
func (k TableRowSequence) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.TableID)
}

// RingBufferRowSequence is the row-number counter for a ring buffer.
type RingBufferRowSequence struct{ RingBufferID uint64 }

func (k RingBufferRowSequence) KIND() Kind { return KindRingBufferRowSequence }
func (k RingBufferRowSequence) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.RingBufferID)
}

// RingBufferRow addresses one row of a ring buffer. Unlike Row, Number is
// stored complemented, so a PrefixScan over one ring buffer's rows yields
// them newest-first without an extra index or an in-memory reverse - the
// access pattern ring buffers exist for (most recent readings, latest log
// lines).
type RingBufferRow struct {
	RingBufferID uint64
	Number       RowNumber
}

func (k RingBufferRow) KIND() Kind { return KindRingBufferRow }
func (k RingBufferRow) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.RingBufferID)
	var num []byte
	num = keycode.PutUint64(num, uint64(k.Number))
	return append(buf, keycode.Complement(num)...)
}

func DecodeRingBufferRow(b EncodedKey) (RingBufferRow, error) {
	_, rest, err := expectPrefix(b, KindRingBufferRow)
	if err != nil {
		return RingBufferRow{}, err
	}
	id, rest, err := keycode.DecodeUint64(rest)
	if err != nil {
		return RingBufferRow{}, err
	}
	if len(rest) < 8 {
		return RingBufferRow{}, keycode.ErrTruncated
	}
	num, _, err := keycode.DecodeUint64(keycode.Complement(rest[:8]))
	if err != nil {
		return RingBufferRow{}, err
	}
	return RingBufferRow{RingBufferID: id, Number: RowNumber(num)}, nil
}

// Namespace addresses a namespace by id.
type Namespace struct{ NamespaceID uint64 }

func (k Namespace) KIND() Kind { return KindNamespace }
func (k Namespace) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.NamespaceID)
}

// NamespaceTable is the secondary index name -> id for namespaces (despite
// the name, it indexes namespaces, not tables).
type NamespaceTable struct{ Name string }

func (k NamespaceTable) KIND() Kind { return KindNamespaceTable }
func (k NamespaceTable) EncodePayload(buf []byte) []byte {
	return keycode.PutBytesOrdered(buf, []byte(k.Name))
}

// Table addresses a table by id.
type Table struct{ TableID uint64 }

func (k Table) KIND() Kind { return KindTable }
func (k Table) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.TableID)
}

// TableColumn addresses one column definition of a table, ordered by its
// declared position so a prefix scan yields columns in schema order.
type TableColumn struct {
	TableID  uint64
	Position uint32
}

func (k TableColumn) KIND() Kind { return KindTableColumn }
func (k TableColumn) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.TableID)
	buf = keycode.PutUint32(buf, k.Position)
	return buf
}

// DecodeTableColumnPosition extracts just the Position field from an
// encoded TableColumn key, used when reconstructing a table's column list
// from a prefix scan where the table id is already known.
func DecodeTableColumnPosition(b EncodedKey) (uint32, error) {
	_, rest, err := expectPrefix(b, KindTableColumn)
	if err != nil {
		return 0, err
	}
	_, rest, err = keycode.DecodeUint64(rest)
	if err != nil {
		return 0, err
	}
	position, _, err := keycode.DecodeUint32(rest)
	if err != nil {
		return 0, err
	}
	return position, nil
}

// View addresses a view by id.
type View struct{ ViewID uint64 }

func (k View) KIND() Kind { return KindView }
func (k View) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.ViewID)
}

func DecodeView(b EncodedKey) (View, error) {
	_, rest, err := expectPrefix(b, KindView)
	if err != nil {
		return View{}, err
	}
	id, _, err := keycode.DecodeUint64(rest)
	if err != nil {
		return View{}, err
	}
	return View{ViewID: id}, nil
}

// ViewColumn addresses one column of a view's output schema.
type ViewColumn struct {
	ViewID   uint64
	Position uint32
}

func (k ViewColumn) KIND() Kind { return KindViewColumn }
func (k ViewColumn) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.ViewID)
	buf = keycode.PutUint32(buf, k.Position)
	return buf
}

// RingBuffer addresses a ring buffer by id.
type RingBuffer struct{ RingBufferID uint64 }

func (k RingBuffer) KIND() Kind { return KindRingBuffer }
func (k RingBuffer) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.RingBufferID)
}

// RingBufferMetadata holds the capacity, head, and tail row numbers of a
// ring buffer, separate from its catalog entity so hot commits only touch
// this narrow record.
type RingBufferMetadata struct{ RingBufferID uint64 }

func (k RingBufferMetadata) KIND() Kind { return KindRingBufferMetadata }
func (k RingBufferMetadata) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.RingBufferID)
}

// Sequence addresses the system-wide id sequence (namespaces, tables,
// views, columns, ...) by the entity kind it mints ids for.
type Sequence struct{ Name string }

func (k Sequence) KIND() Kind { return KindSequence }
func (k Sequence) EncodePayload(buf []byte) []byte {
	return keycode.PutBytesOrdered(buf, []byte(k.Name))
}

// SequenceRow is an alias key family used by row-number allocation paths
// that need to be distinguished, at the backend level, from id sequences.
type SequenceRow struct{ PrimitiveID uint64 }

func (k SequenceRow) KIND() Kind { return KindSequenceRow }
func (k SequenceRow) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.PrimitiveID)
}

// Policy addresses a policy by id.
type Policy struct{ PolicyID uint64 }

func (k Policy) KIND() Kind { return KindPolicy }
func (k Policy) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.PolicyID)
}

// PolicyOp addresses one ordered operation within a policy (e.g. a column
// overflow clause), ordered by position so the policy is replayed in order.
type PolicyOp struct {
	PolicyID uint64
	Position uint32
}

func (k PolicyOp) KIND() Kind { return KindPolicyOp }
func (k PolicyOp) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.PolicyID)
	buf = keycode.PutUint32(buf, k.Position)
	return buf
}

// SecurityPolicy addresses a security policy by id.
type SecurityPolicy struct{ SecurityPolicyID uint64 }

func (k SecurityPolicy) KIND() Kind { return KindSecurityPolicy }
func (k SecurityPolicy) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.SecurityPolicyID)
}

// SecurityPolicyOp addresses one ordered rule within a security policy.
type SecurityPolicyOp struct {
	SecurityPolicyID uint64
	Position         uint32
}

func (k SecurityPolicyOp) KIND() Kind { return KindSecurityPolicyOp }
func (k SecurityPolicyOp) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.SecurityPolicyID)
	buf = keycode.PutUint32(buf, k.Position)
	return buf
}

// Migration addresses one applied schema migration by its sequence number,
// so a prefix scan over KindMigration yields migrations in application
// order.
type Migration struct{ Sequence uint64 }

func (k Migration) KIND() Kind { return KindMigration }
func (k Migration) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.Sequence)
}

func DecodeMigration(b EncodedKey) (Migration, error) {
	_, rest, err := expectPrefix(b, KindMigration)
	if err != nil {
		return Migration{}, err
	}
	seq, _, err := keycode.DecodeUint64(rest)
	if err != nil {
		return Migration{}, err
	}
	return Migration{Sequence: seq}, nil
}

// Flow addresses a flow (materialized view's incremental pipeline) by id.
type Flow struct{ FlowID uint64 }

func (k Flow) KIND() Kind { return KindFlow }
func (k Flow) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.FlowID)
}

func DecodeFlow(b EncodedKey) (Flow, error) {
	_, rest, err := expectPrefix(b, KindFlow)
	if err != nil {
		return Flow{}, err
	}
	id, _, err := keycode.DecodeUint64(rest)
	if err != nil {
		return Flow{}, err
	}
	return Flow{FlowID: id}, nil
}

// FlowNode addresses one operator node within a flow's DAG.
type FlowNode struct {
	FlowID uint64
	NodeID uint64
}

func (k FlowNode) KIND() Kind { return KindFlowNode }
func (k FlowNode) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.FlowID)
	buf = keycode.PutUint64(buf, k.NodeID)
	return buf
}

func DecodeFlowNode(b EncodedKey) (FlowNode, error) {
	_, rest, err := expectPrefix(b, KindFlowNode)
	if err != nil {
		return FlowNode{}, err
	}
	flowID, rest, err := keycode.DecodeUint64(rest)
	if err != nil {
		return FlowNode{}, err
	}
	nodeID, _, err := keycode.DecodeUint64(rest)
	if err != nil {
		return FlowNode{}, err
	}
	return FlowNode{FlowID: flowID, NodeID: nodeID}, nil
}

// FlowNodeState addresses the persisted state of one stateful operator node
// (e.g. an aggregate's running totals), keyed by flow and node id only.
type FlowNodeState struct {
	FlowID uint64
	NodeID uint64
}

func (k FlowNodeState) KIND() Kind { return KindFlowNodeState }
func (k FlowNodeState) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.FlowID)
	buf = keycode.PutUint64(buf, k.NodeID)
	return buf
}

// Subscription addresses a CDC subscription by id.
type Subscription struct{ SubscriptionID uint64 }

func (k Subscription) KIND() Kind { return KindSubscription }
func (k Subscription) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.SubscriptionID)
}

// SubscriptionColumn addresses one column of a subscription's output
// schema, which always includes the implicit _op column (0=Insert,
// 1=Update, 2=Delete) at position 0.
type SubscriptionColumn struct {
	SubscriptionID uint64
	Position       uint32
}

func (k SubscriptionColumn) KIND() Kind { return KindSubscriptionColumn }
func (k SubscriptionColumn) EncodePayload(buf []byte) []byte {
	buf = keycode.PutUint64(buf, k.SubscriptionID)
	buf = keycode.PutUint32(buf, k.Position)
	return buf
}

// Cdc addresses the per-commit change record for a CommitVersion.
type Cdc struct{ Version uint64 }

func (k Cdc) KIND() Kind { return KindCdc }
func (k Cdc) EncodePayload(buf []byte) []byte {
	return keycode.PutUint64(buf, k.Version)
}

func DecodeCdc(b EncodedKey) (Cdc, error) {
	_, rest, err := expectPrefix(b, KindCdc)
	if err != nil {
		return Cdc{}, err
	}
	version, _, err := keycode.DecodeUint64(rest)
	if err != nil {
		return Cdc{}, err
	}
	return Cdc{Version: version}, nil
}

// SystemVersion is the single-version-plane key holding the on-disk format
// version, checked at startup so a mismatched data directory is rejected
// rather than silently misread.
type SystemVersion struct{}

func (k SystemVersion) KIND() Kind { return KindSystemVersion }
func (k SystemVersion) EncodePayload(buf []byte) []byte { return buf }

// expectPrefix validates that b has the current Version byte and the
// expected kind, returning the payload that follows.
func expectPrefix(b EncodedKey, want Kind) (Kind, []byte, error) {
	if len(b) < 2 {
		return 0, nil, keycode.ErrTruncated
	}
	kind, ok := b.Kind()
	if !ok || kind != want {
		return 0, nil, errMismatch
	}
	return kind, b[2:], nil
}

var errMismatch = &mismatchError{}

type mismatchError struct{}

func (*mismatchError) Error() string { return "key: version or kind mismatch" }
