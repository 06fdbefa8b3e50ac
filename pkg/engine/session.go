package engine

import (
	"context"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/eval"
	"github.com/reifydb/reifydb/pkg/exec"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
	"github.com/reifydb/reifydb/pkg/txn"
)

func touchesPrimitive(c kv.CdcChange, primitiveID uint64) bool {
	r, err := key.DecodeRow(c.Key)
	return err == nil && r.PrimitiveID == primitiveID
}

// Plan is an already-resolved execution tree: the parser and planner that
// would turn query text into one are out of scope, so Session runs plans
// built directly.
type Plan = exec.Operator

// Session is the boundary applications embedding this module interact
// through. Command and CommandSession.Commit enforce MaxTransactionKeys;
// AllowFullScan is carried on SessionConfig but not yet consulted by any
// gating logic here, since there is no plan-level scan inspection to hang
// it on without a query planner in scope.
type Session interface {
	Query(ctx context.Context, plan Plan, params eval.Params) ([]column.Columns, error)
	Command(ctx context.Context, plan Plan, params eval.Params) ([]column.Columns, error)
	BeginQuery(ctx context.Context) (*txn.QueryTransaction, error)
	BeginCommand(ctx context.Context) (*CommandSession, error)
	Subscribe(ctx context.Context, primitiveID uint64, batchSize int) (*SubscriptionCursor, error)
	SystemScan(name string) (Plan, bool)
}

type session struct {
	engine    *Engine
	principal Principal
	cfg       SessionConfig
}

func (s *session) Query(ctx context.Context, plan Plan, params eval.Params) ([]column.Columns, error) {
	qt := s.engine.manager.BeginQuery()
	ectx := &exec.ExecutionContext{
		Reader:    exec.FromQuery(qt),
		Catalog:   s.engine.store,
		Params:    params,
		Variables: map[string]eval.VariableBinding{},
		BatchSize: s.cfg.BatchSize,
	}
	return runPlan(plan, ectx)
}

func (s *session) Command(ctx context.Context, plan Plan, params eval.Params) ([]column.Columns, error) {
	ct := s.engine.manager.BeginCommand(s.cfg.Serializable)
	txc := catalog.NewTx(ct)
	ectx := &exec.ExecutionContext{
		Reader:    ct,
		Catalog:   s.engine.store,
		CatalogTx: txc,
		Params:    params,
		Variables: map[string]eval.VariableBinding{},
		BatchSize: s.cfg.BatchSize,
	}
	result, err := runPlan(plan, ectx)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxTransactionKeys > 0 && ct.PendingKeyCount() > s.cfg.MaxTransactionKeys {
		return nil, diagnostic.New(diagnostic.CodeTxnTooLarge,
			"command transaction exceeds the session's max_transaction_keys limit")
	}
	if err := ct.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func runPlan(plan Plan, ectx *exec.ExecutionContext) ([]column.Columns, error) {
	if err := plan.Initialize(ectx); err != nil {
		return nil, err
	}
	var out []column.Columns
	for {
		batch, ok, err := plan.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, batch)
	}
	return out, nil
}

func (s *session) BeginQuery(ctx context.Context) (*txn.QueryTransaction, error) {
	return s.engine.manager.BeginQuery(), nil
}

// CommandSession wraps a raw CommandTransaction together with the catalog
// shadow it carries and the session's size guard, so BeginCommand callers
// get the same max-transaction-keys enforcement as Command.
type CommandSession struct {
	Txn *txn.CommandTransaction
	Cat *catalog.Tx
	cfg SessionConfig
}

func (c *CommandSession) Commit() error {
	if c.cfg.MaxTransactionKeys > 0 && c.Txn.PendingKeyCount() > c.cfg.MaxTransactionKeys {
		return diagnostic.New(diagnostic.CodeTxnTooLarge,
			"command transaction exceeds the session's max_transaction_keys limit")
	}
	return c.Txn.Commit()
}

// BeginCommand hands back the raw transaction for callers building their
// own plan; as with Query and Command, AllowFullScan is not consulted.
func (s *session) BeginCommand(ctx context.Context) (*CommandSession, error) {
	ct := s.engine.manager.BeginCommand(s.cfg.Serializable)
	return &CommandSession{Txn: ct, Cat: catalog.NewTx(ct), cfg: s.cfg}, nil
}

// SystemScan resolves one of the engine's built-in system.* virtual tables
// (system.namespaces, system.tables, system.views, system.flows,
// system.migrations) to a ready-to-run plan, or false if name names none of
// them. The scan runs against its own read-only transaction snapshot, never
// committed, the same pattern the catalog introspection commands in
// cmd/reifydb-admin use.
func (s *session) SystemScan(name string) (Plan, bool) {
	ct := s.engine.manager.BeginCommand(false)
	txc := catalog.NewTx(ct)
	source, ok := exec.SystemTableSource(s.engine.store, txc, name)
	if !ok {
		return nil, false
	}
	return &exec.VirtualScan{Source: source}, true
}

// SubscriptionCursor pulls CDC records touching primitiveID, starting from
// the subscription's acknowledged watermark, and advances the watermark as
// the caller consumes batches.
type SubscriptionCursor struct {
	engine      *Engine
	def         catalog.SubscriptionDef
	primitiveID uint64
	batchSize   int
	cursor      uint64
}

func (s *session) Subscribe(ctx context.Context, primitiveID uint64, batchSize int) (*SubscriptionCursor, error) {
	ct := s.engine.manager.BeginCommand(false)
	txc := catalog.NewTx(ct)
	def := s.engine.store.CreateSubscription(txc)
	if err := ct.Commit(); err != nil {
		return nil, err
	}
	return &SubscriptionCursor{engine: s.engine, def: def, primitiveID: primitiveID, batchSize: batchSize}, nil
}

// Next returns the next batch of CDC changes touching the cursor's
// primitive since its watermark, advancing the watermark to the highest
// version observed. Returns ok=false when there is nothing new yet.
func (c *SubscriptionCursor) Next(ctx context.Context) (changes []kv.CdcChange, ok bool, err error) {
	it, err := c.engine.backend.CDC().Range(ctx, c.def.AcknowledgedVersion+1, ^uint64(0))
	if err != nil {
		return nil, false, err
	}
	defer it.Close()

	var matched []kv.CdcChange
	var highest uint64
	count := 0
	for it.Next() {
		rec := it.Value()
		for _, sc := range rec.Changes {
			if !touchesPrimitive(sc.Change, c.primitiveID) {
				continue
			}
			matched = append(matched, sc.Change)
			count++
		}
		highest = rec.Version
		if c.batchSize > 0 && count >= c.batchSize {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, false, err
	}
	if len(matched) == 0 {
		return nil, false, nil
	}

	ct := c.engine.manager.BeginCommand(false)
	txc := catalog.NewTx(ct)
	c.def = c.engine.store.AcknowledgeSubscription(txc, c.def, highest)
	if err := ct.Commit(); err != nil {
		return nil, false, err
	}
	return matched, true, nil
}
