package catalog

// Op distinguishes the three things a catalog mutation can do.
type Op uint8

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

// Change is one shadow entry for entity kind T: a DDL issued inside a
// transaction appends one of these instead of mutating the persistent
// catalog directly, so it is visible within the transaction but invisible
// to everyone else until commit.
type Change[T any] struct {
	Pre  *T
	Post *T
	Op   Op
}

// Changes is the transaction-local shadow: one vector per catalog entity
// kind. It is never itself persisted; on commit it is drained into the
// persistent store's writes (already staged as the transaction's pending
// set, since every Create/Update/Delete above writes through txc.Txn), and
// on rollback it is discarded along with the rest of the transaction.
type Changes struct {
	Namespaces       []Change[NamespaceDef]
	Tables           []Change[TableDef]
	Views            []Change[ViewDef]
	RingBuffers      []Change[RingBufferDef]
	Policies         []Change[PolicyDef]
	SecurityPolicies []Change[SecurityPolicyDef]
	Flows            []Change[FlowDef]
}

// identifiable is implemented by every Def type stored in a Changes vector,
// so findShadowByID can stay generic instead of being repeated per entity.
type identifiable interface {
	id() uint64
}

func (d NamespaceDef) id() uint64 { return d.ID }
func (d TableDef) id() uint64     { return d.ID }

// findShadowByID implements the lookup discipline shared by every entity
// kind: iterate the shadow in reverse, returning the first match's Post (or
// reporting a hard miss if the most recent matching change is a Delete).
// Returning ok=false means "fall through to the persistent catalog", not
// "not found".
func findShadowByID[T identifiable](changes []Change[T], id uint64) (*T, Op, bool) {
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		if c.Post != nil && (*c.Post).id() == id {
			return c.Post, c.Op, true
		}
		if c.Pre != nil && (*c.Pre).id() == id && c.Op == OpDelete {
			return nil, OpDelete, true
		}
	}
	return nil, 0, false
}
