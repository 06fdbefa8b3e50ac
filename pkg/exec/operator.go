// Package exec implements the pull-based physical operator tree: the top
// node is asked for the next columnar batch until it reports exhausted.
package exec

import "github.com/reifydb/reifydb/pkg/column"

// Operator is the common contract every physical node satisfies.
type Operator interface {
	// Initialize performs one-shot setup (allocate buffers, store ctx).
	Initialize(ctx *ExecutionContext) error
	// Next returns the next batch, or ok=false when the stream is
	// exhausted.
	Next() (column.Columns, bool, error)
	// Headers optionally advertises column names before the first
	// batch, for consumers that need a schema up front.
	Headers() ([]string, bool)
}
