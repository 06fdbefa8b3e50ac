// Package engine wires the storage backend, transaction manager, catalog,
// and flow scheduler into the Session surface applications embed this
// module through.
package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reifydb/reifydb/config"
	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/kv"
	"github.com/reifydb/reifydb/pkg/log"
	"github.com/reifydb/reifydb/pkg/txn"
)

// systemClock reports wall-clock time in milliseconds, the Clock the
// transaction manager uses outside of tests.
type systemClock struct{}

func (systemClock) NowMillis() int64 { return nowMillis() }

// Principal identifies the caller a session acts on behalf of; security
// policies are evaluated against its Name and Roles.
type Principal struct {
	Name  string
	Roles []string
}

// SessionConfig is the per-session override of the engine-wide defaults in
// config.Config; NewSession says how each field is layered.
type SessionConfig struct {
	AllowFullScan      bool
	MaxTransactionKeys int
	Serializable       bool
	BatchSize          int
}

// Engine owns the storage backend, the transaction manager, the catalog
// store, and the flow scheduler, and mints Sessions against them.
type Engine struct {
	cfg     config.Config
	backend kv.Backend
	manager *txn.Manager
	store   *catalog.Store
	sched   *flow.Scheduler
	reg     *registry
	log     zerolog.Logger
}

// New opens the backend configured by cfg and returns a ready Engine. The
// caller is responsible for calling Close when done (a no-op for the
// in-memory backend, required for bbolt).
func New(cfg config.Config) (*Engine, error) {
	var backend kv.Backend
	switch cfg.Backend {
	case config.BackendMemory:
		backend = kv.NewMemory()
	case config.BackendBbolt:
		b, err := kv.OpenBolt(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("engine: opening bbolt backend: %w", err)
		}
		backend = b
	default:
		return nil, fmt.Errorf("engine: unknown backend %q", cfg.Backend)
	}

	manager, err := txn.NewManager(backend, systemClock{})
	if err != nil {
		return nil, fmt.Errorf("engine: starting transaction manager: %w", err)
	}

	store := catalog.NewStore()
	reg := newRegistry(store, manager, log.WithComponent("registry"))
	sched := flow.NewScheduler(reg, backend.CDC(), 0, log.WithComponent("flow"))

	return &Engine{
		cfg:     cfg,
		backend: backend,
		manager: manager,
		store:   store,
		sched:   sched,
		reg:     reg,
		log:     log.WithComponent("engine"),
	}, nil
}

// Backend exposes the raw storage planes, for maintenance tools that need
// to inspect or dump state outside of a Session (catalog listing, CDC dump).
func (e *Engine) Backend() kv.Backend { return e.backend }

// Store exposes the catalog store directly, for maintenance tools that walk
// catalog entities without going through a Session's plan execution.
func (e *Engine) Store() *catalog.Store { return e.store }

// Manager exposes the transaction manager directly, for maintenance tools
// that need a raw Query/Command transaction without a Session wrapped
// around it.
func (e *Engine) Manager() *txn.Manager { return e.manager }

// Close releases the backend's resources, if it holds any.
func (e *Engine) Close() error {
	if closer, ok := e.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// NewSession mints a Session acting as principal, with cfg layered over the
// engine's defaults: a non-positive BatchSize or MaxTransactionKeys takes
// the engine's DefaultBatchSize or Session.MaxTransactionKeys, and
// Serializable is on when either cfg or the engine configuration sets it.
// MaxTransactionKeys is enforced at the Session boundary, per the "errors
// are inspected for control flow only at the engine boundary" rule.
// AllowFullScan is kept as cfg gives it and is not consulted by the Session.
func (e *Engine) NewSession(principal Principal, cfg SessionConfig) Session {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = e.cfg.DefaultBatchSize
	}
	if cfg.MaxTransactionKeys <= 0 {
		cfg.MaxTransactionKeys = e.cfg.Session.MaxTransactionKeys
	}
	cfg.Serializable = cfg.Serializable || e.cfg.Serializable
	return &session{
		engine:    e,
		principal: principal,
		cfg:       cfg,
	}
}

// Drain runs the flow scheduler over every CDC record in
// [fromVersion, toVersion], re-deriving every registered view's state.
// The engine does not call it on its own: a caller invokes it after
// committing, or a maintenance tool runs it in a batch to catch a view up
// after it was paused.
func (e *Engine) Drain(fromVersion, toVersion uint64) error {
	return e.sched.Drain(fromVersion, toVersion)
}
