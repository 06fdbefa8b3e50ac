package exec

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/column"
)

// JoinType distinguishes Inner from Left outer joins.
type JoinType uint8

const (
	JoinInner JoinType = iota
	JoinLeft
)

// Join builds a hash table over the right side (the build side) on
// RightKeys, then probes it with each left row's LeftKeys. Keys are
// compared with total ordering; NULL keys never join, per the join
// operator's contract.
type Join struct {
	Left, Right          Operator
	Type                 JoinType
	LeftKeys, RightKeys []string

	ctx *ExecutionContext
}

func (j *Join) Initialize(ctx *ExecutionContext) error {
	j.ctx = ctx
	if err := j.Left.Initialize(ctx); err != nil {
		return err
	}
	return j.Right.Initialize(ctx)
}

func (j *Join) Next() (column.Columns, bool, error) {
	left, err := materialize(j.Left)
	if err != nil {
		return column.Columns{}, false, err
	}
	right, err := materialize(j.Right)
	if err != nil {
		return column.Columns{}, false, err
	}
	if left.RowCount() == 0 {
		return column.Columns{}, false, nil
	}

	rightKeyCols := columnsByName(right, j.RightKeys)
	leftKeyCols := columnsByName(left, j.LeftKeys)

	buildTable := map[string][]int{}
	for i := 0; i < right.RowCount(); i++ {
		k, ok := joinKeyAt(rightKeyCols, i)
		if !ok {
			continue
		}
		buildTable[k] = append(buildTable[k], i)
	}

	var leftIdx, rightIdx []int
	for i := 0; i < left.RowCount(); i++ {
		k, ok := joinKeyAt(leftKeyCols, i)
		if !ok {
			if j.Type == JoinLeft {
				leftIdx = append(leftIdx, i)
				rightIdx = append(rightIdx, -1)
			}
			continue
		}
		matches := buildTable[k]
		if len(matches) == 0 {
			if j.Type == JoinLeft {
				leftIdx = append(leftIdx, i)
				rightIdx = append(rightIdx, -1)
			}
			continue
		}
		for _, m := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, m)
		}
	}

	if len(leftIdx) == 0 {
		return column.Columns{}, false, nil
	}

	out := make([]column.Column, 0, len(left.Items)+len(right.Items))
	for _, item := range left.Items {
		d := column.Undefined(0)
		for _, i := range leftIdx {
			d.AppendFrom(item.Data, i)
		}
		out = append(out, column.Column{Name: item.Name, Data: d})
	}
	for _, item := range right.Items {
		d := column.Undefined(0)
		for _, i := range rightIdx {
			if i < 0 {
				d.PushInt(item.Data.Type, 0, false)
				continue
			}
			d.AppendFrom(item.Data, i)
		}
		out = append(out, column.Column{Name: item.Name, Data: d})
	}
	return column.Columns{Items: out}, true, nil
}

func (j *Join) Headers() ([]string, bool) { return nil, false }

func columnsByName(batch column.Columns, names []string) []column.ColumnData {
	out := make([]column.ColumnData, len(names))
	for i, n := range names {
		for _, item := range batch.Items {
			if item.Name == n {
				out[i] = item.Data
				break
			}
		}
	}
	return out
}

func joinKeyAt(cols []column.ColumnData, i int) (string, bool) {
	key := ""
	for _, c := range cols {
		if !c.IsDefined(i) {
			return "", false
		}
		v, _ := rawValue(c, i)
		key += fmt.Sprintf("%v\x01", v)
	}
	return key, true
}
