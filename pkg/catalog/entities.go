package catalog

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/keycode"
	"github.com/reifydb/reifydb/pkg/row"
)

// ViewDef is a materialized view's catalog entity: its output schema plus
// the flow id that maintains it.
type ViewDef struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	FlowID      uint64
	Columns     []ColumnDef
}

func (d ViewDef) id() uint64 { return d.ID }

// RingBufferDef is a table-like primitive capped at Capacity rows, oldest
// row evicted on insert past capacity.
type RingBufferDef struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	Capacity    uint64
	Columns     []ColumnDef
}

func (d RingBufferDef) id() uint64 { return d.ID }

// PolicyOpDef is one ordered clause of a Policy (e.g. a column overflow
// behavior).
type PolicyOpDef struct {
	Position uint32
	Kind     string
	Argument string
}

// PolicyDef is an ordered list of PolicyOpDef, applied to a column or table.
type PolicyDef struct {
	ID  uint64
	Ops []PolicyOpDef
}

func (d PolicyDef) id() uint64 { return d.ID }

// SecurityPolicyOpDef is one ordered rule within a SecurityPolicyDef.
type SecurityPolicyOpDef struct {
	Position uint32
	Action   string
	Subject  string
}

// SecurityPolicyDef gates session operations; evaluated before a session is
// permitted to run a statement.
type SecurityPolicyDef struct {
	ID  uint64
	Ops []SecurityPolicyOpDef
}

func (d SecurityPolicyDef) id() uint64 { return d.ID }

// MigrationDef records one applied schema migration, in application order.
type MigrationDef struct {
	Sequence    uint64
	Description string
	AppliedAt   int64
}

func (d MigrationDef) id() uint64 { return d.Sequence }

// FlowDef is the catalog entity for a flow's DAG; the DAG's nodes live
// under FlowNode/FlowNodeState keys, not inline here, since they can be
// large and are mutated independently of the flow's own metadata.
type FlowDef struct {
	ID       uint64
	ViewID   uint64
	SourceID uint64
	Paused   bool
}

func (d FlowDef) id() uint64 { return d.ID }

// SubscriptionDef is a CDC subscription: a named-less, id-only catalog
// entity with an implicit _op column (0=Insert, 1=Update, 2=Delete) and a
// persisted acknowledged watermark, which cdc.range uses to decide what a
// subscriber has and hasn't seen.
type SubscriptionDef struct {
	ID                 uuid.UUID
	AcknowledgedVersion uint64
}

func (s *Store) nextUUID() uuid.UUID {
	return uuid.New()
}

// CreateView allocates a view id and writes its output schema, backed by
// the flow that maintains it. The flow itself is created separately by the
// caller (the flow compiler), since ViewDef only records the linkage.
func (s *Store) CreateView(txc *Tx, namespaceID uint64, name string, flowID uint64, columns []ColumnDef) ViewDef {
	id := s.nextID(txc, "view")
	for i := range columns {
		columns[i].ID = s.nextID(txc, "column")
		columns[i].Position = uint32(i)
	}
	def := ViewDef{ID: id, NamespaceID: namespaceID, Name: name, FlowID: flowID, Columns: columns}

	schema := viewSchema()
	encoded, _ := row.Encode(schema, []any{int64(def.NamespaceID), def.Name, int64(def.FlowID)})
	txc.Txn.Set(key.Encode(key.View{ViewID: id}), encoded)

	colSchema := tableColumnSchema()
	for _, c := range def.Columns {
		colEncoded, _ := row.Encode(colSchema, []any{int64(c.ID), c.Name, uint8(c.Type)})
		txc.Txn.Set(key.Encode(key.ViewColumn{ViewID: id, Position: c.Position}), colEncoded)
	}

	txc.Shadow.Views = append(txc.Shadow.Views, Change[ViewDef]{Post: &def, Op: OpCreate})
	return def
}

func viewSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "namespace_id", Type: row.TypeInt64},
		{Name: "name", Type: row.TypeUtf8},
		{Name: "flow_id", Type: row.TypeInt64},
	}}
}

// FindView consults the shadow, then the persistent store, reconstructing
// columns from a ViewColumn prefix scan.
func (s *Store) FindView(txc *Tx, id uint64) (ViewDef, bool, error) {
	if def, op, ok := findShadowByID(txc.Shadow.Views, id); ok {
		if op == OpDelete {
			return ViewDef{}, false, nil
		}
		return *def, true, nil
	}

	v, found, err := txc.Get(key.Encode(key.View{ViewID: id}))
	if err != nil || !found {
		return ViewDef{}, false, err
	}
	values, err := row.Decode(viewSchema(), v)
	if err != nil {
		return ViewDef{}, false, err
	}
	def := ViewDef{ID: id, NamespaceID: uint64(values[0].(int64)), Name: values[1].(string), FlowID: uint64(values[2].(int64))}

	prefix := key.Encode(key.View{ViewID: id})[2:]
	entries, err := txc.Range(key.PrefixScan(key.KindViewColumn, prefix))
	if err != nil {
		return ViewDef{}, false, err
	}
	colSchema := tableColumnSchema()
	for _, e := range entries {
		cols, err := row.Decode(colSchema, e.Value)
		if err != nil {
			return ViewDef{}, false, err
		}
		def.Columns = append(def.Columns, ColumnDef{ID: uint64(cols[0].(int64)), Name: cols[1].(string), Type: row.Type(cols[2].(uint8))})
	}
	return def, true, nil
}

// ListViews returns every persisted view, including ones shadowed by this
// transaction's own uncommitted creates. Used by system.views.
func (s *Store) ListViews(txc *Tx) ([]ViewDef, error) {
	r := key.FullScan(key.KindView)
	entries, err := txc.Range(r)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	var out []ViewDef
	for _, e := range entries {
		vk, err := key.DecodeView(e.Key)
		if err != nil {
			return nil, err
		}
		def, found, err := s.FindView(txc, vk.ViewID)
		if err != nil || !found {
			continue
		}
		out = append(out, def)
		seen[vk.ViewID] = true
	}
	for _, c := range txc.Shadow.Views {
		if c.Op == OpDelete || c.Post == nil || seen[c.Post.ID] {
			continue
		}
		out = append(out, *c.Post)
	}
	return out, nil
}

// CreateRingBuffer allocates a ring buffer id, its metadata (capacity, head,
// tail), and its column schema, mirroring CreateTable's layout.
func (s *Store) CreateRingBuffer(txc *Tx, namespaceID uint64, name string, capacity uint64, columns []ColumnDef) RingBufferDef {
	id := s.nextID(txc, "ring_buffer")
	for i := range columns {
		columns[i].ID = s.nextID(txc, "column")
		columns[i].Position = uint32(i)
	}
	def := RingBufferDef{ID: id, NamespaceID: namespaceID, Name: name, Capacity: capacity, Columns: columns}

	schema := ringBufferSchema()
	encoded, _ := row.Encode(schema, []any{int64(def.NamespaceID), def.Name, int64(def.Capacity)})
	txc.Txn.Set(key.Encode(key.RingBuffer{RingBufferID: id}), encoded)

	metaSchema := ringBufferMetaSchema()
	metaEncoded, _ := row.Encode(metaSchema, []any{int64(0), int64(0)})
	txc.Txn.Set(key.Encode(key.RingBufferMetadata{RingBufferID: id}), metaEncoded)

	colSchema := tableColumnSchema()
	for _, c := range def.Columns {
		colEncoded, _ := row.Encode(colSchema, []any{int64(c.ID), c.Name, uint8(c.Type)})
		txc.Txn.Set(key.Encode(key.TableColumn{TableID: id, Position: c.Position}), colEncoded)
	}

	txc.Shadow.RingBuffers = append(txc.Shadow.RingBuffers, Change[RingBufferDef]{Post: &def, Op: OpCreate})
	return def
}

func ringBufferSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "namespace_id", Type: row.TypeInt64},
		{Name: "name", Type: row.TypeUtf8},
		{Name: "capacity", Type: row.TypeInt64},
	}}
}

func ringBufferMetaSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "head", Type: row.TypeInt64},
		{Name: "tail", Type: row.TypeInt64},
	}}
}

// RingBufferHeadTail reads the current head/tail row numbers of a ring
// buffer, used by the insert path to decide whether the oldest row must be
// evicted to stay within capacity.
func (s *Store) RingBufferHeadTail(txc *Tx, id uint64) (head, tail uint64, err error) {
	v, found, err := txc.Get(key.Encode(key.RingBufferMetadata{RingBufferID: id}))
	if err != nil || !found {
		return 0, 0, err
	}
	values, err := row.Decode(ringBufferMetaSchema(), v)
	if err != nil {
		return 0, 0, err
	}
	return uint64(values[0].(int64)), uint64(values[1].(int64)), nil
}

// SetRingBufferHeadTail persists the ring buffer's updated head/tail row
// numbers after an insert or eviction.
func (s *Store) SetRingBufferHeadTail(txc *Tx, id uint64, head, tail uint64) {
	encoded, _ := row.Encode(ringBufferMetaSchema(), []any{int64(head), int64(tail)})
	txc.Txn.Set(key.Encode(key.RingBufferMetadata{RingBufferID: id}), encoded)
}

// InsertRingBufferRow appends one row at the current tail, evicting the row
// at head if that would push the buffer past capacity, and advances
// head/tail to reflect it.
func (s *Store) InsertRingBufferRow(txc *Tx, id uint64, capacity uint64, schema row.Schema, values []any) error {
	head, tail, err := s.RingBufferHeadTail(txc, id)
	if err != nil {
		return err
	}

	encoded, err := row.Encode(schema, values)
	if err != nil {
		return err
	}
	txc.Txn.Set(key.Encode(key.RingBufferRow{RingBufferID: id, Number: key.RowNumber(tail)}), encoded)
	tail++

	if tail-head > capacity {
		txc.Txn.Remove(key.Encode(key.RingBufferRow{RingBufferID: id, Number: key.RowNumber(head)}))
		head++
	}

	s.SetRingBufferHeadTail(txc, id, head, tail)
	return nil
}

// RingBufferRows returns up to limit of ring buffer id's rows, newest
// first, decoded against schema. limit <= 0 returns every live row.
func (s *Store) RingBufferRows(txc *Tx, id uint64, schema row.Schema, limit int) ([][]any, error) {
	prefix := keycode.PutUint64(nil, id)
	entries, err := txc.Range(key.PrefixScan(key.KindRingBufferRow, prefix))
	if err != nil {
		return nil, err
	}

	out := make([][]any, 0, len(entries))
	for _, e := range entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		values, err := row.Decode(schema, e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, nil
}

// CreateSubscription mints a new subscription id and writes its initial
// zero watermark.
func (s *Store) CreateSubscription(txc *Tx) SubscriptionDef {
	def := SubscriptionDef{ID: s.nextUUID(), AcknowledgedVersion: 0}
	s.putSubscriptionWatermark(txc, def)
	return def
}

func (s *Store) putSubscriptionWatermark(txc *Tx, def SubscriptionDef) {
	k := key.Encode(key.Subscription{SubscriptionID: subscriptionIDToUint(def.ID)})
	txc.Txn.Set(k, encodeID(def.AcknowledgedVersion))
}

// AcknowledgeSubscription advances a subscription's watermark. Writes go
// through the single-version plane conceptually (subscriptions are not
// versioned data), but are staged the same way as any other catalog write
// so they commit atomically with whatever else the transaction does.
func (s *Store) AcknowledgeSubscription(txc *Tx, def SubscriptionDef, version uint64) SubscriptionDef {
	def.AcknowledgedVersion = version
	s.putSubscriptionWatermark(txc, def)
	return def
}

// subscriptionIDToUint folds a UUID down to a uint64 key component using
// its low 8 bytes; collisions are astronomically unlikely for a
// process-local subscription registry and the full UUID remains the
// subscription's identity for equality purposes.
func subscriptionIDToUint(id uuid.UUID) uint64 {
	var v uint64
	for _, b := range id[8:] {
		v = v<<8 | uint64(b)
	}
	return v
}

// CreateMigration appends the next migration record, numbered by the same
// sequence allocation as ids (nextID), so two concurrent migration
// applications conflict at commit rather than share a sequence number.
func (s *Store) CreateMigration(txc *Tx, description string, appliedAt int64) MigrationDef {
	seq := s.nextID(txc, "migration")
	def := MigrationDef{Sequence: seq, Description: description, AppliedAt: appliedAt}

	schema := migrationSchema()
	encoded, _ := row.Encode(schema, []any{description, appliedAt})
	txc.Txn.Set(key.Encode(key.Migration{Sequence: seq}), encoded)
	return def
}

func migrationSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "description", Type: row.TypeUtf8},
		{Name: "applied_at", Type: row.TypeInt64},
	}}
}

// FindMigration reads a migration record directly from the persistent
// store; migrations are append-only and never shadowed, since they are
// only ever written by cmd/reifydb-admin outside of user transactions.
func (s *Store) FindMigration(txc *Tx, seq uint64) (MigrationDef, bool, error) {
	v, found, err := txc.Get(key.Encode(key.Migration{Sequence: seq}))
	if err != nil || !found {
		return MigrationDef{}, false, err
	}
	values, err := row.Decode(migrationSchema(), v)
	if err != nil {
		return MigrationDef{}, false, err
	}
	return MigrationDef{Sequence: seq, Description: values[0].(string), AppliedAt: values[1].(int64)}, true, nil
}

// ListMigrations returns every applied migration in sequence order. Used by
// system.migrations and by cmd/reifydb-admin's history command.
func (s *Store) ListMigrations(txc *Tx) ([]MigrationDef, error) {
	r := key.FullScan(key.KindMigration)
	entries, err := txc.Range(r)
	if err != nil {
		return nil, err
	}
	schema := migrationSchema()
	var out []MigrationDef
	for _, e := range entries {
		mk, err := key.DecodeMigration(e.Key)
		if err != nil {
			return nil, err
		}
		values, err := row.Decode(schema, e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, MigrationDef{Sequence: mk.Sequence, Description: values[0].(string), AppliedAt: values[1].(int64)})
	}
	return out, nil
}

// CreatePolicy writes a policy id and its ordered operation list.
func (s *Store) CreatePolicy(txc *Tx, ops []PolicyOpDef) PolicyDef {
	id := s.nextID(txc, "policy")
	def := PolicyDef{ID: id, Ops: ops}

	txc.Txn.Set(key.Encode(key.Policy{PolicyID: id}), []byte{})
	opSchema := policyOpSchema()
	for _, op := range ops {
		encoded, _ := row.Encode(opSchema, []any{op.Kind, op.Argument})
		txc.Txn.Set(key.Encode(key.PolicyOp{PolicyID: id, Position: op.Position}), encoded)
	}
	txc.Shadow.Policies = append(txc.Shadow.Policies, Change[PolicyDef]{Post: &def, Op: OpCreate})
	return def
}

func policyOpSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "kind", Type: row.TypeUtf8},
		{Name: "argument", Type: row.TypeUtf8},
	}}
}

// EvaluatePolicy looks up a policy by id, returning POLICY_002 when the
// policy does not exist (rather than silently allowing the operation it
// gates). It returns the policy's definition without running its ops, so
// it never reports a denial.
func (s *Store) EvaluatePolicy(txc *Tx, id uint64) (PolicyDef, error) {
	def, found, err := s.findPolicy(txc, id)
	if err != nil {
		return PolicyDef{}, err
	}
	if !found {
		return PolicyDef{}, diagnostic.New(diagnostic.CodePolicyUndefined, fmt.Sprintf("no policy defined for id %d", id))
	}
	return def, nil
}

func (s *Store) findPolicy(txc *Tx, id uint64) (PolicyDef, bool, error) {
	if def, op, ok := findShadowByID(txc.Shadow.Policies, id); ok {
		if op == OpDelete {
			return PolicyDef{}, false, nil
		}
		return *def, true, nil
	}

	_, found, err := txc.Get(key.Encode(key.Policy{PolicyID: id}))
	if err != nil || !found {
		return PolicyDef{}, false, err
	}

	prefix := key.Encode(key.Policy{PolicyID: id})[2:]
	r := key.PrefixScan(key.KindPolicyOp, prefix)
	entries, err := txc.Range(r)
	if err != nil {
		return PolicyDef{}, false, err
	}
	opSchema := policyOpSchema()
	def := PolicyDef{ID: id}
	for _, e := range entries {
		values, err := row.Decode(opSchema, e.Value)
		if err != nil {
			return PolicyDef{}, false, err
		}
		def.Ops = append(def.Ops, PolicyOpDef{Kind: values[0].(string), Argument: values[1].(string)})
	}
	return def, true, nil
}

// DenyIfNotPermitted is how session-boundary checks surface POLICY_001: a
// security policy lookup failing to find an explicit "allow" rule for
// subject is a denial, not a silent pass-through.
func DenyIfNotPermitted(permitted bool, subject string) error {
	if permitted {
		return nil
	}
	return diagnostic.New(diagnostic.CodePolicyDenied, fmt.Sprintf("operation denied by security policy for %q", subject))
}

// CreateSecurityPolicy writes a security policy id and its ordered rule
// list, mirroring CreatePolicy's layout (one meta key plus one row per
// op).
func (s *Store) CreateSecurityPolicy(txc *Tx, ops []SecurityPolicyOpDef) SecurityPolicyDef {
	id := s.nextID(txc, "security_policy")
	def := SecurityPolicyDef{ID: id, Ops: ops}

	txc.Txn.Set(key.Encode(key.SecurityPolicy{SecurityPolicyID: id}), []byte{})
	opSchema := securityPolicyOpSchema()
	for _, op := range ops {
		encoded, _ := row.Encode(opSchema, []any{op.Action, op.Subject})
		txc.Txn.Set(key.Encode(key.SecurityPolicyOp{SecurityPolicyID: id, Position: op.Position}), encoded)
	}
	txc.Shadow.SecurityPolicies = append(txc.Shadow.SecurityPolicies, Change[SecurityPolicyDef]{Post: &def, Op: OpCreate})
	return def
}

func securityPolicyOpSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "action", Type: row.TypeUtf8},
		{Name: "subject", Type: row.TypeUtf8},
	}}
}

// EvaluateSecurityPolicy looks up a security policy by id and reports
// whether subject is permitted any "allow" rule naming it; an undefined
// policy id is itself a denial, per DenyIfNotPermitted's contract.
func (s *Store) EvaluateSecurityPolicy(txc *Tx, id uint64, subject string) (bool, error) {
	def, found, err := s.findSecurityPolicy(txc, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	for _, op := range def.Ops {
		if op.Action == "allow" && op.Subject == subject {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) findSecurityPolicy(txc *Tx, id uint64) (SecurityPolicyDef, bool, error) {
	if def, op, ok := findShadowByID(txc.Shadow.SecurityPolicies, id); ok {
		if op == OpDelete {
			return SecurityPolicyDef{}, false, nil
		}
		return *def, true, nil
	}

	_, found, err := txc.Get(key.Encode(key.SecurityPolicy{SecurityPolicyID: id}))
	if err != nil || !found {
		return SecurityPolicyDef{}, false, err
	}

	prefix := key.Encode(key.SecurityPolicy{SecurityPolicyID: id})[2:]
	r := key.PrefixScan(key.KindSecurityPolicyOp, prefix)
	entries, err := txc.Range(r)
	if err != nil {
		return SecurityPolicyDef{}, false, err
	}
	opSchema := securityPolicyOpSchema()
	def := SecurityPolicyDef{ID: id}
	for _, e := range entries {
		values, err := row.Decode(opSchema, e.Value)
		if err != nil {
			return SecurityPolicyDef{}, false, err
		}
		def.Ops = append(def.Ops, SecurityPolicyOpDef{Action: values[0].(string), Subject: values[1].(string)})
	}
	return def, true, nil
}

// FlowNodeDef is one operator node of a flow's DAG, as persisted under a
// FlowNode key: its variant, upstream node ids, and (for Filter/Extend/
// Distinct) the encoded expression the registry evaluates to build a real
// operator instead of a pass-through one.
type FlowNodeDef struct {
	NodeID  uint64
	Kind    uint8
	Variant uint8
	TableID uint64
	ViewID  uint64
	Inputs  []uint64
	Expr    []byte
}

func flowNodeSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "kind", Type: row.TypeUint32},
		{Name: "variant", Type: row.TypeUint32},
		{Name: "table_id", Type: row.TypeUint64},
		{Name: "view_id", Type: row.TypeUint64},
		{Name: "inputs", Type: row.TypeUtf8},
		{Name: "expr", Type: row.TypeBlob},
	}}
}

func encodeInputs(inputs []uint64) string {
	out := ""
	for i, id := range inputs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", id)
	}
	return out
}

func decodeInputs(s string) []uint64 {
	if s == "" {
		return nil
	}
	var out []uint64
	var cur uint64
	for _, r := range s {
		if r == ',' {
			out = append(out, cur)
			cur = 0
			continue
		}
		cur = cur*10 + uint64(r-'0')
	}
	return append(out, cur)
}

func flowSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "view_id", Type: row.TypeUint64},
		{Name: "source_id", Type: row.TypeUint64},
		{Name: "paused", Type: row.TypeUint32},
	}}
}

func encodeFlowDef(def FlowDef) []byte {
	paused := uint32(0)
	if def.Paused {
		paused = 1
	}
	encoded, _ := row.Encode(flowSchema(), []any{def.ViewID, def.SourceID, paused})
	return encoded
}

func decodeFlowDef(id uint64, raw []byte) (FlowDef, error) {
	values, err := row.Decode(flowSchema(), raw)
	if err != nil {
		return FlowDef{}, err
	}
	return FlowDef{
		ID:       id,
		ViewID:   values[0].(uint64),
		SourceID: values[1].(uint64),
		Paused:   values[2].(uint32) == 1,
	}, nil
}

// CreateFlow writes a flow's metadata and its full node set, linking
// sourceID (the table this flow reacts to) and viewID (the view it
// maintains) into the FlowDef.
func (s *Store) CreateFlow(txc *Tx, viewID, sourceID uint64, nodes []FlowNodeDef) FlowDef {
	id := s.nextID(txc, "flow")
	def := FlowDef{ID: id, ViewID: viewID, SourceID: sourceID, Paused: false}

	txc.Txn.Set(key.Encode(key.Flow{FlowID: id}), encodeFlowDef(def))
	schema := flowNodeSchema()
	for _, n := range nodes {
		encoded, _ := row.Encode(schema, []any{
			uint32(n.Kind), uint32(n.Variant), n.TableID, n.ViewID, encodeInputs(n.Inputs), n.Expr,
		})
		txc.Txn.Set(key.Encode(key.FlowNode{FlowID: id, NodeID: n.NodeID}), encoded)
	}
	txc.Shadow.Flows = append(txc.Shadow.Flows, Change[FlowDef]{Post: &def, Op: OpCreate})
	return def
}

// SetFlowPaused flips a flow's Paused flag, used by the flow scheduler when
// an operator node exhausts its retry budget.
func (s *Store) SetFlowPaused(txc *Tx, id uint64, paused bool) (FlowDef, error) {
	def, found, err := s.findFlow(txc, id)
	if err != nil {
		return FlowDef{}, err
	}
	if !found {
		return FlowDef{}, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("no flow defined for id %d", id))
	}
	def.Paused = paused
	txc.Txn.Set(key.Encode(key.Flow{FlowID: id}), encodeFlowDef(def))
	txc.Shadow.Flows = append(txc.Shadow.Flows, Change[FlowDef]{Pre: &FlowDef{ID: id}, Post: &def, Op: OpUpdate})
	return def, nil
}

func (s *Store) FindFlow(txc *Tx, id uint64) (FlowDef, bool, error) {
	return s.findFlow(txc, id)
}

func (s *Store) findFlow(txc *Tx, id uint64) (FlowDef, bool, error) {
	if def, op, ok := findShadowByID(txc.Shadow.Flows, id); ok {
		if op == OpDelete {
			return FlowDef{}, false, nil
		}
		return *def, true, nil
	}

	raw, found, err := txc.Get(key.Encode(key.Flow{FlowID: id}))
	if err != nil || !found {
		return FlowDef{}, false, err
	}
	def, err := decodeFlowDef(id, raw)
	if err != nil {
		return FlowDef{}, false, err
	}
	return def, true, nil
}

// ListFlows returns every persisted flow, including ones shadowed by this
// transaction's own uncommitted creates. Used by the engine's flow registry
// to build its table-id-to-flow-ids index on first use.
func (s *Store) ListFlows(txc *Tx) ([]FlowDef, error) {
	r := key.FullScan(key.KindFlow)
	entries, err := txc.Range(r)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	var out []FlowDef
	for _, e := range entries {
		fk, err := key.DecodeFlow(e.Key)
		if err != nil {
			return nil, err
		}
		def, err := decodeFlowDef(fk.FlowID, e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
		seen[fk.FlowID] = true
	}
	for _, c := range txc.Shadow.Flows {
		if c.Op == OpDelete || c.Post == nil || seen[(*c.Post).id()] {
			continue
		}
		out = append(out, *c.Post)
	}
	return out, nil
}

// FlowNodes returns every node belonging to flowID, in no particular order;
// the scheduler topologically sorts them itself.
func (s *Store) FlowNodes(txc *Tx, flowID uint64) ([]FlowNodeDef, error) {
	prefix := key.Encode(key.Flow{FlowID: flowID})[2:]
	r := key.PrefixScan(key.KindFlowNode, prefix)
	entries, err := txc.Range(r)
	if err != nil {
		return nil, err
	}
	schema := flowNodeSchema()
	var out []FlowNodeDef
	for _, e := range entries {
		fk, err := key.DecodeFlowNode(e.Key)
		if err != nil {
			return nil, err
		}
		values, err := row.Decode(schema, e.Value)
		if err != nil {
			return nil, err
		}
		var expr []byte
		if values[5] != nil {
			expr = values[5].([]byte)
		}
		out = append(out, FlowNodeDef{
			NodeID:  fk.NodeID,
			Kind:    uint8(values[0].(uint32)),
			Variant: uint8(values[1].(uint32)),
			TableID: values[2].(uint64),
			ViewID:  values[3].(uint64),
			Inputs:  decodeInputs(values[4].(string)),
			Expr:    expr,
		})
	}
	return out, nil
}
