// Package catalog implements the catalog store: namespaces, tables, views,
// ring buffers, columns, sequences, policies, security policies,
// migrations, flows, and subscriptions, each with a primary key family and
// the secondary indexes needed for name lookups, plus the transaction-local
// shadow that makes DDL visible within its own transaction before commit.
package catalog

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/row"
	"github.com/reifydb/reifydb/pkg/txn"
)

// NamespaceDef is the definition of a namespace.
type NamespaceDef struct {
	ID   uint64
	Name string
}

// TableDef is the definition of a table.
type TableDef struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	Columns     []ColumnDef
}

// ColumnDef is one column of a table's schema.
type ColumnDef struct {
	ID       uint64
	Position uint32
	Name     string
	Type     row.Type
}

// Schema converts a table's column definitions to a row.Schema for the row
// encoder.
func (t TableDef) Schema() row.Schema {
	fields := make([]row.Field, len(t.Columns))
	for i, c := range t.Columns {
		fields[i] = row.Field{Name: c.Name, Type: c.Type}
	}
	return row.Schema{Fields: fields}
}

// Store is the persistent catalog, backed by the same transaction every
// DML operator uses, so catalog writes and row writes commit atomically.
type Store struct{}

// NewStore constructs a catalog store. It is stateless: every operation
// takes the CommandTransaction or QueryTransaction it should run against.
func NewStore() *Store { return &Store{} }

// CreateNamespace allocates a new namespace id and writes the primary and
// secondary (name -> id) entries, after checking for a name collision.
func (s *Store) CreateNamespace(txc *Tx, name string) (NamespaceDef, error) {
	if _, found, err := s.FindNamespaceByName(txc, name); err != nil {
		return NamespaceDef{}, err
	} else if found {
		return NamespaceDef{}, diagnostic.New(diagnostic.CodeNamespaceExists, fmt.Sprintf("namespace %q already exists", name))
	}

	id := s.nextID(txc, "namespace")
	def := NamespaceDef{ID: id, Name: name}

	s.putNamespace(txc, def)
	txc.Shadow.Namespaces = append(txc.Shadow.Namespaces, Change[NamespaceDef]{Post: &def, Op: OpCreate})
	return def, nil
}

func (s *Store) putNamespace(txc *Tx, def NamespaceDef) {
	schema := namespaceSchema()
	encoded, _ := row.Encode(schema, []any{int64(def.ID), def.Name})
	txc.Txn.Set(key.Encode(key.Namespace{NamespaceID: def.ID}), encoded)
	txc.Txn.Set(key.Encode(key.NamespaceTable{Name: def.Name}), []byte(encodeID(def.ID)))
}

func namespaceSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "id", Type: row.TypeInt64},
		{Name: "name", Type: row.TypeUtf8},
	}}
}

// GetNamespace is an internal-error if missing: catalog consistency is an
// invariant, not a user-facing condition.
func (s *Store) GetNamespace(txc *Tx, id uint64) (NamespaceDef, error) {
	def, found, err := s.FindNamespace(txc, id)
	if err != nil {
		return NamespaceDef{}, err
	}
	if !found {
		return NamespaceDef{}, diagnostic.Internal(fmt.Sprintf("catalog inconsistency: namespace %d referenced but missing", id), nil)
	}
	return def, nil
}

// FindNamespace consults the shadow first, then the persistent store.
func (s *Store) FindNamespace(txc *Tx, id uint64) (NamespaceDef, bool, error) {
	if def, op, ok := findShadowByID(txc.Shadow.Namespaces, id); ok {
		if op == OpDelete {
			return NamespaceDef{}, false, nil
		}
		return *def, true, nil
	}

	v, found, err := txc.Get(key.Encode(key.Namespace{NamespaceID: id}))
	if err != nil || !found {
		return NamespaceDef{}, false, err
	}
	values, err := row.Decode(namespaceSchema(), v)
	if err != nil {
		return NamespaceDef{}, false, err
	}
	return NamespaceDef{ID: uint64(values[0].(int64)), Name: values[1].(string)}, true, nil
}

// FindNamespaceByName uses the secondary name index.
func (s *Store) FindNamespaceByName(txc *Tx, name string) (NamespaceDef, bool, error) {
	for i := len(txc.Shadow.Namespaces) - 1; i >= 0; i-- {
		c := txc.Shadow.Namespaces[i]
		if c.Post != nil && c.Post.Name == name {
			return *c.Post, true, nil
		}
		if c.Pre != nil && c.Pre.Name == name && c.Op == OpDelete {
			return NamespaceDef{}, false, nil
		}
	}

	v, found, err := txc.Get(key.Encode(key.NamespaceTable{Name: name}))
	if err != nil || !found {
		return NamespaceDef{}, false, err
	}
	id := decodeID(v)
	return s.FindNamespace(txc, id)
}

// CreateTable allocates a table id, a row sequence for it, and writes the
// table row plus one TableColumn row per column.
func (s *Store) CreateTable(txc *Tx, namespaceID uint64, name string, columns []ColumnDef) (TableDef, error) {
	id := s.nextID(txc, "table")
	for i := range columns {
		columns[i].ID = s.nextID(txc, "column")
		columns[i].Position = uint32(i)
	}
	def := TableDef{ID: id, NamespaceID: namespaceID, Name: name, Columns: columns}

	s.putTable(txc, def)
	txc.Shadow.Tables = append(txc.Shadow.Tables, Change[TableDef]{Post: &def, Op: OpCreate})
	return def, nil
}

func (s *Store) putTable(txc *Tx, def TableDef) {
	schema := tableSchema()
	encoded, _ := row.Encode(schema, []any{int64(def.ID), int64(def.NamespaceID), def.Name})
	txc.Txn.Set(key.Encode(key.Table{TableID: def.ID}), encoded)

	colSchema := tableColumnSchema()
	for _, c := range def.Columns {
		colEncoded, _ := row.Encode(colSchema, []any{int64(c.ID), c.Name, uint8(c.Type)})
		txc.Txn.Set(key.Encode(key.TableColumn{TableID: def.ID, Position: c.Position}), colEncoded)
	}
}

func tableSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "id", Type: row.TypeInt64},
		{Name: "namespace_id", Type: row.TypeInt64},
		{Name: "name", Type: row.TypeUtf8},
	}}
}

func tableColumnSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "id", Type: row.TypeInt64},
		{Name: "name", Type: row.TypeUtf8},
		{Name: "type", Type: row.TypeUint8},
	}}
}

// GetTable is internal-error if missing.
func (s *Store) GetTable(txc *Tx, id uint64) (TableDef, error) {
	def, found, err := s.FindTable(txc, id)
	if err != nil {
		return TableDef{}, err
	}
	if !found {
		return TableDef{}, diagnostic.Internal(fmt.Sprintf("catalog inconsistency: table %d referenced but missing", id), nil)
	}
	return def, nil
}

// FindTable consults the shadow, then the persistent store, reconstructing
// the column list from the TableColumn family (a prefix scan under the
// table's id).
func (s *Store) FindTable(txc *Tx, id uint64) (TableDef, bool, error) {
	if def, op, ok := findShadowByID(txc.Shadow.Tables, id); ok {
		if op == OpDelete {
			return TableDef{}, false, nil
		}
		return *def, true, nil
	}

	v, found, err := txc.Get(key.Encode(key.Table{TableID: id}))
	if err != nil || !found {
		return TableDef{}, false, err
	}
	values, err := row.Decode(tableSchema(), v)
	if err != nil {
		return TableDef{}, false, err
	}

	def := TableDef{ID: uint64(values[0].(int64)), NamespaceID: uint64(values[1].(int64)), Name: values[2].(string)}

	prefix := key.Encode(key.Table{TableID: id})[2:]
	r := key.PrefixScan(key.KindTableColumn, prefix)
	entries, err := txc.Range(r)
	if err != nil {
		return TableDef{}, false, err
	}
	colSchema := tableColumnSchema()
	for _, e := range entries {
		cols, err := row.Decode(colSchema, e.Value)
		if err != nil {
			return TableDef{}, false, err
		}
		col, err := key.DecodeTableColumnPosition(e.Key)
		if err != nil {
			return TableDef{}, false, err
		}
		def.Columns = append(def.Columns, ColumnDef{
			ID:       uint64(cols[0].(int64)),
			Position: col,
			Name:     cols[1].(string),
			Type:     row.Type(cols[2].(uint8)),
		})
	}
	return def, true, nil
}

// ListNamespaces returns every persisted namespace, including ones shadowed
// by this transaction's own uncommitted creates. Used by maintenance tools
// inspecting a data directory's catalog.
func (s *Store) ListNamespaces(txc *Tx) ([]NamespaceDef, error) {
	r := key.FullScan(key.KindNamespace)
	entries, err := txc.Range(r)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	var out []NamespaceDef
	for _, e := range entries {
		values, err := row.Decode(namespaceSchema(), e.Value)
		if err != nil {
			return nil, err
		}
		def := NamespaceDef{ID: uint64(values[0].(int64)), Name: values[1].(string)}
		out = append(out, def)
		seen[def.ID] = true
	}
	for _, c := range txc.Shadow.Namespaces {
		if c.Op == OpDelete || c.Post == nil || seen[c.Post.ID] {
			continue
		}
		out = append(out, *c.Post)
	}
	return out, nil
}

// ListTables returns every table belonging to namespaceID, including ones
// shadowed by this transaction's own uncommitted creates.
func (s *Store) ListTables(txc *Tx, namespaceID uint64) ([]TableDef, error) {
	r := key.FullScan(key.KindTable)
	entries, err := txc.Range(r)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	var out []TableDef
	for _, e := range entries {
		values, err := row.Decode(tableSchema(), e.Value)
		if err != nil {
			return nil, err
		}
		id := uint64(values[0].(int64))
		nsID := uint64(values[1].(int64))
		seen[id] = true
		if nsID != namespaceID {
			continue
		}
		def, found, err := s.FindTable(txc, id)
		if err != nil || !found {
			continue
		}
		out = append(out, def)
	}
	for _, c := range txc.Shadow.Tables {
		if c.Op == OpDelete || c.Post == nil || seen[c.Post.ID] || c.Post.NamespaceID != namespaceID {
			continue
		}
		out = append(out, *c.Post)
	}
	return out, nil
}

// nextID allocates from the per-entity-kind system sequence, held under a
// Sequence key in the command transaction's multi-version write set: read
// current, increment, write back. The sequence is not kept in the
// single-version plane, so two transactions allocating from the same
// sequence concurrently conflict at commit like any other overlapping
// writes.
func (s *Store) nextID(txc *Tx, kindName string) uint64 {
	k := key.Encode(key.Sequence{Name: kindName})
	raw, found, _ := txc.Txn.Get(k)
	var current uint64
	if found {
		current = decodeID(raw.Value)
	}
	next := current + 1
	txc.Txn.Set(k, []byte(encodeID(next)))
	return next
}

func encodeID(id uint64) []byte {
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = byte(id)
		id >>= 8
	}
	return out
}

func decodeID(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// Tx bundles a CommandTransaction with its catalog shadow, so callers touch
// one value instead of threading the shadow through every call.
type Tx struct {
	Txn    *txn.CommandTransaction
	Shadow *Changes
}

func NewTx(t *txn.CommandTransaction) *Tx {
	return &Tx{Txn: t, Shadow: &Changes{}}
}

// Get reads through pending writes first (handled by CommandTransaction),
// unaffected by the catalog shadow, which only concerns entity lookups.
func (t *Tx) Get(k key.EncodedKey) ([]byte, bool, error) {
	v, found, err := t.Txn.Get(k)
	if err != nil || !found {
		return nil, found, err
	}
	return v.Value, true, nil
}

// Range merges pending writes into the MV range scan, returning plain
// values (the shadow governs catalog entities separately).
func (t *Tx) Range(r key.EncodedKeyRange) ([]rangeEntry, error) {
	values, err := t.Txn.Range(r)
	if err != nil {
		return nil, err
	}
	out := make([]rangeEntry, len(values))
	for i, v := range values {
		out[i] = rangeEntry{Key: v.Key, Value: v.Value}
	}
	return out, nil
}

type rangeEntry struct {
	Key   key.EncodedKey
	Value []byte
}
