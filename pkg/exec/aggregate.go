package exec

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/row"
)

// AggregateFunc names one of the built-in running-state aggregates.
type AggregateFunc string

const (
	AggSum   AggregateFunc = "sum"
	AggCount AggregateFunc = "count"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
	AggAvg   AggregateFunc = "avg"
)

// AggregateExpr is one output aggregate column: the function applied to
// Column (empty for count(*)), bound to the output name Name.
type AggregateExpr struct {
	Name     string
	Function AggregateFunc
	Column   string
}

// Aggregate hash-groups upstream rows by the By expressions, maintaining
// running state per group for each aggregate, and emits one row per group
// on input EOF. Group keys preserve insertion order of first observation.
type Aggregate struct {
	Input Operator
	By    []ProjectExpr
	Map   []AggregateExpr

	ctx *ExecutionContext
}

func (a *Aggregate) Initialize(ctx *ExecutionContext) error {
	a.ctx = ctx
	return a.Input.Initialize(ctx)
}

type groupState struct {
	keyValues []any
	sums      map[string]float64
	counts    map[string]int64
	mins      map[string]float64
	maxs      map[string]float64
	minSet    map[string]bool
	maxSet    map[string]bool
}

func (a *Aggregate) Next() (column.Columns, bool, error) {
	merged, err := materialize(a.Input)
	if err != nil {
		return column.Columns{}, false, err
	}
	rowCount := merged.RowCount()
	if rowCount == 0 {
		return column.Columns{}, false, nil
	}

	keyCols, err := evaluateProjections(a.ctx, merged, a.By)
	if err != nil {
		return column.Columns{}, false, err
	}

	order := []string{}
	groups := map[string]*groupState{}

	for i := 0; i < rowCount; i++ {
		k := groupKeyAt(keyCols, i)
		g, ok := groups[k]
		if !ok {
			g = &groupState{
				sums: map[string]float64{}, counts: map[string]int64{},
				mins: map[string]float64{}, maxs: map[string]float64{},
				minSet: map[string]bool{}, maxSet: map[string]bool{},
			}
			for _, kc := range keyCols.Items {
				v, _ := rawValue(kc.Data, i)
				g.keyValues = append(g.keyValues, v)
			}
			groups[k] = g
			order = append(order, k)
		}

		for _, agg := range a.Map {
			var col column.ColumnData
			var defined bool
			var fv float64
			if agg.Column != "" {
				for _, item := range merged.Items {
					if item.Name == agg.Column {
						col = item.Data
						break
					}
				}
				defined = col.IsDefined(i)
				if defined {
					fv = asFloatValue(col, i)
				}
			}
			switch agg.Function {
			case AggCount:
				if agg.Column == "" || defined {
					g.counts[agg.Name]++
				}
			case AggSum:
				if defined {
					g.sums[agg.Name] += fv
				}
			case AggAvg:
				if defined {
					g.sums[agg.Name] += fv
					g.counts[agg.Name]++
				}
			case AggMin:
				if defined && (!g.minSet[agg.Name] || fv < g.mins[agg.Name]) {
					g.mins[agg.Name] = fv
					g.minSet[agg.Name] = true
				}
			case AggMax:
				if defined && (!g.maxSet[agg.Name] || fv > g.maxs[agg.Name]) {
					g.maxs[agg.Name] = fv
					g.maxSet[agg.Name] = true
				}
			}
		}
	}

	outCols := make([]column.Column, 0, len(a.By)+len(a.Map))
	for ci, kc := range keyCols.Items {
		d := column.Undefined(0)
		for _, k := range order {
			g := groups[k]
			pushRaw(&d, kc.Data.Type, g.keyValues[ci])
		}
		outCols = append(outCols, column.Column{Name: kc.Name, Data: d})
	}

	for _, agg := range a.Map {
		d := column.Undefined(0)
		for _, k := range order {
			g := groups[k]
			switch agg.Function {
			case AggCount:
				d.PushInt(row.TypeInt64, g.counts[agg.Name], true)
			case AggSum:
				d.PushFloat(row.TypeFloat64, g.sums[agg.Name], true)
			case AggAvg:
				c := g.counts[agg.Name]
				if c == 0 {
					d.PushFloat(row.TypeFloat64, 0, false)
				} else {
					d.PushFloat(row.TypeFloat64, g.sums[agg.Name]/float64(c), true)
				}
			case AggMin:
				d.PushFloat(row.TypeFloat64, g.mins[agg.Name], g.minSet[agg.Name])
			case AggMax:
				d.PushFloat(row.TypeFloat64, g.maxs[agg.Name], g.maxSet[agg.Name])
			default:
				return column.Columns{}, false, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unknown aggregate function %q", agg.Function))
			}
		}
		outCols = append(outCols, column.Column{Name: agg.Name, Data: d})
	}

	return column.Columns{Items: outCols}, true, nil
}

func (a *Aggregate) Headers() ([]string, bool) { return nil, false }

func groupKeyAt(cols column.Columns, i int) string {
	key := ""
	for _, c := range cols.Items {
		v, ok := rawValue(c.Data, i)
		if !ok {
			key += "\x00N\x01"
			continue
		}
		key += fmt.Sprintf("%v\x01", v)
	}
	return key
}

func rawValue(d column.ColumnData, i int) (any, bool) {
	if !d.IsDefined(i) {
		return nil, false
	}
	switch {
	case isFloatTypeExported(d.Type):
		v, _ := d.Float(i)
		return v, true
	case isIntegerTypeExported(d.Type):
		if isSignedTypeExported(d.Type) {
			v, _ := d.Int(i)
			return v, true
		}
		v, _ := d.Uint(i)
		return v, true
	case d.Type == row.TypeBool:
		v, _ := d.Bool(i)
		return v, true
	default:
		v, _ := d.String(i)
		return v, true
	}
}

func pushRaw(d *column.ColumnData, t row.Type, v any) {
	if v == nil {
		d.PushInt(t, 0, false)
		return
	}
	switch x := v.(type) {
	case bool:
		d.PushBool(x, true)
	case float64:
		d.PushFloat(t, x, true)
	case int64:
		d.PushInt(t, x, true)
	case uint64:
		d.PushUint(t, x, true)
	case string:
		d.PushString(t, x, true)
	default:
		d.PushInt(t, 0, false)
	}
}

func asFloatValue(d column.ColumnData, i int) float64 {
	if isFloatTypeExported(d.Type) {
		v, _ := d.Float(i)
		return v
	}
	if isSignedTypeExported(d.Type) {
		v, _ := d.Int(i)
		return float64(v)
	}
	v, _ := d.Uint(i)
	return float64(v)
}

func isFloatTypeExported(t row.Type) bool { return t == row.TypeFloat32 || t == row.TypeFloat64 }
func isIntegerTypeExported(t row.Type) bool {
	switch t {
	case row.TypeInt8, row.TypeInt16, row.TypeInt32, row.TypeInt64,
		row.TypeUint8, row.TypeUint16, row.TypeUint32, row.TypeUint64:
		return true
	}
	return false
}
func isSignedTypeExported(t row.Type) bool {
	switch t {
	case row.TypeInt8, row.TypeInt16, row.TypeInt32, row.TypeInt64:
		return true
	}
	return false
}
