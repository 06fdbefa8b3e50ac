package exec

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/diagnostic"
)

// Take stops the stream after N rows cumulatively. A negative N is
// rejected at construction (plan time), not at first Next.
type Take struct {
	Input Operator
	N     int

	taken int
}

// NewTake validates N, returning TAKE_001 for a negative count.
func NewTake(input Operator, n int) (*Take, error) {
	if n < 0 {
		return nil, diagnostic.New(diagnostic.CodeTakeNegative, fmt.Sprintf("take count must be non-negative, got %d", n))
	}
	return &Take{Input: input, N: n}, nil
}

func (t *Take) Initialize(ctx *ExecutionContext) error { return t.Input.Initialize(ctx) }

func (t *Take) Next() (column.Columns, bool, error) {
	if t.taken >= t.N {
		return column.Columns{}, false, nil
	}
	batch, ok, err := t.Input.Next()
	if err != nil || !ok {
		return column.Columns{}, ok, err
	}

	remaining := t.N - t.taken
	rc := batch.RowCount()
	if rc <= remaining {
		t.taken += rc
		return batch, true, nil
	}

	indices := make([]int, remaining)
	for i := range indices {
		indices[i] = i
	}
	t.taken = t.N
	return selectRows(batch, indices), true, nil
}

func (t *Take) Headers() ([]string, bool) { return t.Input.Headers() }
