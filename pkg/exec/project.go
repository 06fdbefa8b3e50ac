package exec

import (
	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/eval"
)

// ProjectExpr is one named output column of a Project or Extend node.
type ProjectExpr struct {
	Name  string
	Value eval.Expression
}

// Project replaces the input's columns with the evaluated expressions.
type Project struct {
	Input       Operator
	Expressions []ProjectExpr

	ctx *ExecutionContext
}

func (p *Project) Initialize(ctx *ExecutionContext) error {
	p.ctx = ctx
	return p.Input.Initialize(ctx)
}

func (p *Project) Next() (column.Columns, bool, error) {
	batch, ok, err := p.Input.Next()
	if err != nil || !ok {
		return column.Columns{}, ok, err
	}
	return evaluateProjections(p.ctx, batch, p.Expressions)
}

func (p *Project) Headers() ([]string, bool) {
	names := make([]string, len(p.Expressions))
	for i, e := range p.Expressions {
		names[i] = e.Name
	}
	return names, true
}

// Extend appends computed columns while preserving the input's columns.
type Extend struct {
	Input       Operator
	Expressions []ProjectExpr

	ctx *ExecutionContext
}

func (e *Extend) Initialize(ctx *ExecutionContext) error {
	e.ctx = ctx
	return e.Input.Initialize(ctx)
}

func (e *Extend) Next() (column.Columns, bool, error) {
	batch, ok, err := e.Input.Next()
	if err != nil || !ok {
		return column.Columns{}, ok, err
	}
	extra, err := evaluateProjections(e.ctx, batch, e.Expressions)
	if err != nil {
		return column.Columns{}, false, err
	}
	out := column.Columns{Items: append(append([]column.Column{}, batch.Items...), extra.Items...)}
	return out, true, nil
}

func (e *Extend) Headers() ([]string, bool) {
	names := make([]string, len(e.Expressions))
	for i, ex := range e.Expressions {
		names[i] = ex.Name
	}
	return names, true
}

func evaluateProjections(ctx *ExecutionContext, batch column.Columns, exprs []ProjectExpr) (column.Columns, error) {
	evalCtx := &eval.ColumnEvaluationContext{
		Batch:     batch,
		RowCount:  batch.RowCount(),
		Params:    ctx.Params,
		Functions: ctx.Functions,
		Variables: ctx.Variables,
	}
	out := make([]column.Column, len(exprs))
	for i, e := range exprs {
		data, err := eval.Evaluate(evalCtx, e.Value)
		if err != nil {
			return column.Columns{}, err
		}
		out[i] = column.Column{Name: e.Name, Data: data}
	}
	return column.Columns{Items: out}, nil
}
