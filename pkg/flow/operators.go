package flow

// FilterOperator is stateless: it re-evaluates Predicate per diff and
// drops rows (on insert/update post) or pre-images (on remove) that no
// longer match.
type FilterOperator struct {
	Predicate func(row []any) bool
}

func (f *FilterOperator) Apply(_ State, in Change) (Change, error) {
	out := Change{Version: in.Version}
	for _, d := range in.Diffs {
		switch d.Kind {
		case DiffInsert:
			if f.Predicate(d.Post) {
				out.Diffs = append(out.Diffs, d)
			}
		case DiffUpdate:
			prePass, postPass := f.Predicate(d.Pre), f.Predicate(d.Post)
			switch {
			case prePass && postPass:
				out.Diffs = append(out.Diffs, d)
			case prePass && !postPass:
				out.Diffs = append(out.Diffs, Diff{Kind: DiffRemove, Pre: d.Pre})
			case !prePass && postPass:
				out.Diffs = append(out.Diffs, Diff{Kind: DiffInsert, Post: d.Post})
			}
		case DiffRemove:
			if f.Predicate(d.Pre) {
				out.Diffs = append(out.Diffs, d)
			}
		}
	}
	return out, nil
}

// ExtendOperator is stateless: it computes additional fields and appends
// them to every row that passes through, via Compute.
type ExtendOperator struct {
	Compute func(row []any) []any
}

func (e *ExtendOperator) Apply(_ State, in Change) (Change, error) {
	out := Change{Version: in.Version}
	for _, d := range in.Diffs {
		nd := d
		if d.Post != nil {
			nd.Post = append(append([]any{}, d.Post...), e.Compute(d.Post)...)
		}
		if d.Pre != nil {
			nd.Pre = append(append([]any{}, d.Pre...), e.Compute(d.Pre)...)
		}
		out.Diffs = append(out.Diffs, nd)
	}
	return out, nil
}

// UnionOperator is stateless: it merges the diffs of two sources, passing
// each through unchanged.
type UnionOperator struct{}

func (UnionOperator) Apply(_ State, in Change) (Change, error) { return in, nil }

// AggregateOperator is stateful: it maintains a running total per group
// key in the MV-backed state subspace, re-emitting the group's full
// current row on every change that touches it.
type AggregateOperator struct {
	GroupKey func(row []any) string
	Init     func() []byte
	Update   func(state []byte, d Diff) []byte
	Decode   func(state []byte) []any
}

func (a *AggregateOperator) Apply(state State, in Change) (Change, error) {
	out := Change{Version: in.Version}

	for _, d := range in.Diffs {
		var key string
		if d.Post != nil {
			key = a.GroupKey(d.Post)
		} else {
			key = a.GroupKey(d.Pre)
		}

		raw, found, err := state.Get([]byte(key))
		if err != nil {
			return Change{}, err
		}
		var before []any
		if found {
			before = a.Decode(raw)
		}

		current := raw
		if !found {
			current = a.Init()
		}
		current = a.Update(current, d)
		if err := state.Set([]byte(key), current); err != nil {
			return Change{}, err
		}
		after := a.Decode(current)

		if before == nil {
			out.Diffs = append(out.Diffs, Diff{Kind: DiffInsert, Post: after})
		} else {
			out.Diffs = append(out.Diffs, Diff{Kind: DiffUpdate, Pre: before, Post: after})
		}
	}
	return out, nil
}

// DistinctOperator is stateful: it tracks how many times each distinct key
// has been inserted, only forwarding the first insert and the removal that
// brings the count back to zero.
type DistinctOperator struct {
	Key func(row []any) string
}

func (d *DistinctOperator) Apply(state State, in Change) (Change, error) {
	out := Change{Version: in.Version}
	for _, diff := range in.Diffs {
		var key string
		var count int64
		switch diff.Kind {
		case DiffInsert:
			key = d.Key(diff.Post)
			count = readCount(state, key) + 1
		case DiffRemove:
			key = d.Key(diff.Pre)
			count = readCount(state, key) - 1
		default:
			continue
		}
		if err := writeCount(state, key, count); err != nil {
			return Change{}, err
		}
		if diff.Kind == DiffInsert && count == 1 {
			out.Diffs = append(out.Diffs, diff)
		}
		if diff.Kind == DiffRemove && count == 0 {
			out.Diffs = append(out.Diffs, diff)
		}
	}
	return out, nil
}

func readCount(state State, key string) int64 {
	raw, found, _ := state.Get([]byte(key))
	if !found || len(raw) != 8 {
		return 0
	}
	var v int64
	for _, b := range raw {
		v = v<<8 | int64(b)
	}
	return v
}

func writeCount(state State, key string, v int64) error {
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return state.Set([]byte(key), out)
}
