package exec

import (
	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/eval"
)

// Filter evaluates Predicate to a boolean column per batch and keeps only
// the rows where it is true; null is treated as false.
type Filter struct {
	Input     Operator
	Predicate eval.Expression

	ctx *ExecutionContext
}

func (f *Filter) Initialize(ctx *ExecutionContext) error {
	f.ctx = ctx
	return f.Input.Initialize(ctx)
}

func (f *Filter) Next() (column.Columns, bool, error) {
	for {
		batch, ok, err := f.Input.Next()
		if err != nil || !ok {
			return column.Columns{}, ok, err
		}

		evalCtx := &eval.ColumnEvaluationContext{
			Batch:     batch,
			RowCount:  batch.RowCount(),
			Params:    f.ctx.Params,
			Functions: f.ctx.Functions,
			Variables: f.ctx.Variables,
		}
		predicate, err := eval.Evaluate(evalCtx, f.Predicate)
		if err != nil {
			return column.Columns{}, false, err
		}

		keep := make([]int, 0, batch.RowCount())
		for i := 0; i < batch.RowCount(); i++ {
			v, defined := predicate.Bool(i)
			if defined && v {
				keep = append(keep, i)
			}
		}
		if len(keep) == 0 {
			continue
		}
		return selectRows(batch, keep), true, nil
	}
}

func (f *Filter) Headers() ([]string, bool) { return f.Input.Headers() }

func selectRows(batch column.Columns, indices []int) column.Columns {
	out := make([]column.Column, len(batch.Items))
	for ci, item := range batch.Items {
		d := column.Undefined(0)
		for _, i := range indices {
			d.AppendFrom(item.Data, i)
		}
		out[ci] = column.Column{Name: item.Name, Data: d}
	}
	return column.Columns{Items: out}
}
