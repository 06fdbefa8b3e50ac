package exec

import (
	"sort"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/eval"
)

// SortKey is one ordering term: the column to sort by and whether it
// sorts descending.
type SortKey struct {
	Column     string
	Descending bool
}

// Sort materializes all upstream batches into one, then sorts by key
// columns with tie-break by key order; single-batch, not external, per the
// pull pipeline's Sort contract.
type Sort struct {
	Input Operator
	Keys  []SortKey

	done bool
}

func (s *Sort) Initialize(ctx *ExecutionContext) error { return s.Input.Initialize(ctx) }

func (s *Sort) Next() (column.Columns, bool, error) {
	if s.done {
		return column.Columns{}, false, nil
	}
	s.done = true

	merged, err := materialize(s.Input)
	if err != nil {
		return column.Columns{}, false, err
	}
	if merged.RowCount() == 0 {
		return merged, false, nil
	}

	indices := make([]int, merged.RowCount())
	for i := range indices {
		indices[i] = i
	}

	keyColumns := make([]column.ColumnData, len(s.Keys))
	for ki, k := range s.Keys {
		for _, item := range merged.Items {
			if item.Name == k.Column {
				keyColumns[ki] = item.Data
				break
			}
		}
	}

	var sortErr error
	sort.SliceStable(indices, func(a, b int) bool {
		ia, ib := indices[a], indices[b]
		for ki, k := range s.Keys {
			c, err := eval.CompareRows(keyColumns[ki], ia, ib)
			if err != nil {
				sortErr = err
				return false
			}
			if c == 0 {
				continue
			}
			if k.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if sortErr != nil {
		return column.Columns{}, false, sortErr
	}

	return selectRows(merged, indices), true, nil
}

func (s *Sort) Headers() ([]string, bool) { return s.Input.Headers() }

func materialize(op Operator) (column.Columns, error) {
	var all []column.Columns
	for {
		batch, ok, err := op.Next()
		if err != nil {
			return column.Columns{}, err
		}
		if !ok {
			break
		}
		all = append(all, batch)
	}
	if len(all) == 0 {
		return column.Columns{}, nil
	}
	if len(all) == 1 {
		return all[0], nil
	}
	out := make([]column.Column, len(all[0].Items))
	for ci, item := range all[0].Items {
		d := column.Undefined(0)
		for _, batch := range all {
			data := batch.Items[ci].Data
			for i := 0; i < data.Len(); i++ {
				d.AppendFrom(data, i)
			}
		}
		out[ci] = column.Column{Name: item.Name, Data: d}
	}
	return column.Columns{Items: out}, nil
}
