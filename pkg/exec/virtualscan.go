package exec

import "github.com/reifydb/reifydb/pkg/column"

// RowSource supplies the rows of a virtual table, computed from catalog
// state rather than stored row bytes (e.g. system.tables).
type RowSource func() (column.Columns, error)

// VirtualScan runs its source exactly once and then reports exhausted,
// matching Scan's batch contract without touching the MV plane.
type VirtualScan struct {
	Source RowSource
	done   bool
}

func (v *VirtualScan) Initialize(ctx *ExecutionContext) error { return nil }

func (v *VirtualScan) Next() (column.Columns, bool, error) {
	if v.done {
		return column.Columns{}, false, nil
	}
	v.done = true
	cols, err := v.Source()
	if err != nil {
		return column.Columns{}, false, err
	}
	return cols, true, nil
}

func (v *VirtualScan) Headers() ([]string, bool) { return nil, false }
