package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
	"github.com/reifydb/reifydb/pkg/row"
)

// Registry resolves which flows react to a changed table, and hands back a
// flow's Def plus node-local operators and state by node id. Supplied by
// pkg/engine, which owns the catalog and the transaction handle.
type Registry interface {
	FlowsForTable(tableID uint64) []uint64
	Flow(flowID uint64) (Def, bool)
	Operator(n Node, schema row.Schema) (Operator, bool)
	State(flowID, nodeID uint64) State
	SetPaused(flowID uint64, paused bool) error
	Schema(tableID uint64) (row.Schema, bool)

	// ViewSchema returns the output schema a NodeSinkView node materializes
	// into, so Materialize can encode the sink's rows.
	ViewSchema(viewID uint64) (row.Schema, bool)

	// Materialize applies change's diffs to the view's row keyspace,
	// making the flow's output visible to exec.Scan.
	Materialize(viewID uint64, schema row.Schema, change Change) error
}

// unit is one flow's share of a single commit's CDC record: every source
// change in that commit whose table belongs to the flow.
type unit struct {
	flowID  uint64
	version uint64
	changes []kv.CdcChange
}

// Scheduler drains the CDC log from an acknowledged watermark, fans
// commits out into per-flow units of work, and runs a worker pool sized so
// that distinct flows execute in parallel while a single flow's units run
// strictly one at a time, in commit order, on one of its own goroutines.
//
// Ordering within a flow matters: an aggregate's running state must see
// version 5 before version 6. Ordering across flows does not, so the pool
// is shared but each flow gets its own serial queue drawn from it.
type Scheduler struct {
	registry Registry
	cdc      kv.CdcLog
	pool     *pond.WorkerPool
	log      zerolog.Logger
	retry    func() backoff.BackOff

	queues map[uint64]*pond.TaskGroup
}

// NewScheduler builds a scheduler with a worker pool sized poolSize
// (0 lets pond pick a default based on NumCPU).
func NewScheduler(registry Registry, cdc kv.CdcLog, poolSize int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		registry: registry,
		cdc:      cdc,
		pool:     pond.New(poolSize, 0, pond.MinWorkers(1)),
		log:      log,
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 10 * time.Second
			return backoff.WithMaxRetries(b, 5)
		},
		queues: map[uint64]*pond.TaskGroup{},
	}
}

// Drain processes every CDC record in [fromVersion, toVersion], dispatching
// each record's flow-relevant changes as units of work. It blocks until all
// dispatched units for this range have completed.
func (s *Scheduler) Drain(fromVersion, toVersion uint64) error {
	// CdcLog.Range excludes its upper bound; widen it by one to include
	// toVersion.
	hi := toVersion
	if hi < ^uint64(0) {
		hi++
	}
	it, err := s.cdc.Range(context.Background(), fromVersion, hi)
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		rec := it.Value()
		units := s.unitsFor(rec)
		for _, u := range units {
			u := u
			group := s.groupFor(u.flowID)
			group.Submit(func() { s.runUnit(u) })
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	for _, g := range s.queues {
		g.Wait()
	}
	return nil
}

// groupFor returns the per-flow serial task group, creating it on first
// use. pond.TaskGroup runs submitted tasks on the shared pool but preserves
// submission order for tasks from the same group.
func (s *Scheduler) groupFor(flowID uint64) *pond.TaskGroup {
	if g, ok := s.queues[flowID]; ok {
		return g
	}
	g := s.pool.Group()
	s.queues[flowID] = g
	return g
}

// unitsFor groups one CDC record's changes by the flows whose source
// tables they touch. A change whose table feeds no flow is dropped.
func (s *Scheduler) unitsFor(rec kv.CdcRecord) []unit {
	byFlow := map[uint64]*unit{}
	for _, sc := range rec.Changes {
		tableID, ok := tableIDFromChange(sc.Change)
		if !ok {
			continue
		}
		for _, flowID := range s.registry.FlowsForTable(tableID) {
			u, ok := byFlow[flowID]
			if !ok {
				u = &unit{flowID: flowID, version: rec.Version}
				byFlow[flowID] = u
			}
			u.changes = append(u.changes, sc.Change)
		}
	}
	units := make([]unit, 0, len(byFlow))
	for _, u := range byFlow {
		units = append(units, *u)
	}
	return units
}

// runUnit applies a unit's changes through its flow's DAG, retrying
// transient failures with backoff before giving up and pausing the flow so
// a bad commit cannot spin the scheduler forever.
func (s *Scheduler) runUnit(u unit) {
	def, ok := s.registry.Flow(u.flowID)
	if !ok || def.Paused {
		return
	}

	op := func() error { return s.apply(def, u) }
	err := backoff.Retry(op, s.retry())
	if err != nil {
		s.log.Error().Uint64("flow", u.flowID).Uint64("version", u.version).Err(err).
			Msg("flow unit failed after retries, pausing")
		if pauseErr := s.registry.SetPaused(u.flowID, true); pauseErr != nil {
			s.log.Error().Uint64("flow", u.flowID).Err(pauseErr).Msg("failed to pause flow")
		}
	}
}

// apply walks the DAG from its source nodes to its sink, feeding the
// unit's changes through each operator node in topological order. Source
// nodes pass Change through unchanged; NodeOperator nodes invoke
// Operator.Apply; NodeSinkView nodes materialize the final Change into the
// view's row keyspace instead of calling an operator. schema is the source
// table's row schema, passed to Operator so a Filter/Extend node can
// resolve its persisted expression's column references; this assumes a
// single-source-table flow where intermediate nodes don't rename or add
// named columns ahead of another expression node, which holds for every
// flow shape this registry constructs today.
func (s *Scheduler) apply(def Def, u unit) error {
	schema, ok := s.registry.Schema(sourceTableOf(def))
	if !ok {
		return backoff.Permanent(errNoSchema(u.flowID))
	}

	in, err := decodeChange(schema, u)
	if err != nil {
		return backoff.Permanent(err)
	}

	order := topoOrder(def)
	values := map[uint64]Change{}
	for _, n := range def.Nodes {
		if n.Kind == NodeSourceTable {
			values[n.ID] = in
		}
	}

	for _, id := range order {
		n := def.Nodes[id]
		if n.Kind == NodeSourceTable {
			continue
		}
		var merged Change
		for i, inID := range n.Inputs {
			c, ok := values[inID]
			if !ok {
				continue
			}
			if i == 0 {
				merged = c
			} else {
				merged.Diffs = append(merged.Diffs, c.Diffs...)
			}
		}

		if n.Kind == NodeSinkView {
			viewSchema, ok := s.registry.ViewSchema(n.ViewID)
			if !ok {
				return backoff.Permanent(errNoViewSchema(n.ViewID))
			}
			if err := s.registry.Materialize(n.ViewID, viewSchema, merged); err != nil {
				return err
			}
			values[n.ID] = merged
			continue
		}

		op, ok := s.registry.Operator(n, schema)
		if !ok {
			return backoff.Permanent(errNoOperator(n.ID))
		}
		out, err := op.Apply(s.registry.State(def.ID, n.ID), merged)
		if err != nil {
			return err
		}
		values[n.ID] = out
	}
	return nil
}

// topoOrder returns node ids in dependency order (inputs before
// dependents). Flow DAGs are small and acyclic by construction, so a
// simple repeated-pass Kahn's algorithm is adequate.
func topoOrder(def Def) []uint64 {
	indegree := map[uint64]int{}
	for id, n := range def.Nodes {
		indegree[id] = len(n.Inputs)
	}
	var order []uint64
	remaining := len(def.Nodes)
	for remaining > 0 {
		progressed := false
		for id, deg := range indegree {
			if deg != 0 {
				continue
			}
			order = append(order, id)
			delete(indegree, id)
			remaining--
			progressed = true
			for otherID, n := range def.Nodes {
				if _, done := indegree[otherID]; !done {
					continue
				}
				for _, inID := range n.Inputs {
					if inID == id {
						indegree[otherID]--
					}
				}
			}
		}
		if !progressed {
			break
		}
	}
	return order
}

func sourceTableOf(def Def) uint64 {
	ids := def.SourceTableIDs()
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}

func tableIDFromChange(c kv.CdcChange) (uint64, bool) {
	r, err := key.DecodeRow(c.Key)
	if err != nil {
		return 0, false
	}
	return r.PrimitiveID, true
}

func errNoSchema(flowID uint64) error {
	return fmt.Errorf("flow %d: no schema for source table", flowID)
}

func errNoOperator(nodeID uint64) error {
	return fmt.Errorf("flow: no operator registered for node %d", nodeID)
}

func errNoViewSchema(viewID uint64) error {
	return fmt.Errorf("flow: no schema for view %d", viewID)
}

func decodeChange(schema row.Schema, u unit) (Change, error) {
	out := Change{Version: u.version}
	for _, c := range u.changes {
		d := Diff{}
		switch c.Kind {
		case kv.CdcInsert:
			post, err := row.Decode(schema, c.Post)
			if err != nil {
				return Change{}, err
			}
			d.Kind, d.Post = DiffInsert, post
		case kv.CdcUpdate:
			pre, err := row.Decode(schema, c.Pre)
			if err != nil {
				return Change{}, err
			}
			post, err := row.Decode(schema, c.Post)
			if err != nil {
				return Change{}, err
			}
			d.Kind, d.Pre, d.Post = DiffUpdate, pre, post
		case kv.CdcDelete:
			pre, err := row.Decode(schema, c.Pre)
			if err != nil {
				return Change{}, err
			}
			d.Kind, d.Pre = DiffRemove, pre
		}
		out.Diffs = append(out.Diffs, d)
	}
	return out, nil
}
