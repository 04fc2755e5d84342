package store

// Where is a small predicate tree over flat string metadata fields,
// supporting equality, $in, $and, and $or (spec §4.1). The same tree
// evaluates against chromem-go's native where-filter for the vector path,
// and in pure Go for the BM25 lexical path's post-hoc filtering, so both
// retrieval paths see identical semantics.
type Where struct {
	op       whereOp
	field    string
	value    string
	values   []string
	children []Where
}

type whereOp int

const (
	opNone whereOp = iota
	opEq
	opIn
	opAnd
	opOr
)

// IsZero reports whether w carries no predicate (matches everything).
func (w Where) IsZero() bool { return w.op == opNone }

// Eq builds a field == value predicate.
func Eq(field, value string) Where {
	return Where{op: opEq, field: field, value: value}
}

// In builds a field ∈ values predicate.
func In(field string, values []string) Where {
	return Where{op: opIn, field: field, values: values}
}

// And combines predicates with logical AND. Empty/zero children are skipped.
func And(children ...Where) Where {
	return combine(opAnd, children)
}

// Or combines predicates with logical OR. Empty/zero children are skipped.
func Or(children ...Where) Where {
	return combine(opOr, children)
}

func combine(op whereOp, children []Where) Where {
	filtered := make([]Where, 0, len(children))
	for _, c := range children {
		if !c.IsZero() {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return Where{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return Where{op: op, children: filtered}
}

// PushdownEq extracts the conjunction of top-level equality predicates that
// a backend's native flat-field filter can express directly ($in/$or/nested
// terms are dropped). Backends push this down to their own query filter and
// then finish the match with Where.Match over the returned candidates, so
// every Store implementation sees the same filter semantics regardless of
// what its native filter language can express.
func PushdownEq(w Where) map[string]string {
	out := map[string]string{}
	collectEq(w, out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func collectEq(w Where, out map[string]string) {
	switch w.op {
	case opEq:
		out[w.field] = w.value
	case opAnd:
		for _, c := range w.children {
			collectEq(c, out)
		}
	}
}

// Match evaluates the predicate against a flat metadata map. A zero Where
// matches everything.
func (w Where) Match(meta map[string]string) bool {
	switch w.op {
	case opNone:
		return true
	case opEq:
		return meta[w.field] == w.value
	case opIn:
		v := meta[w.field]
		for _, candidate := range w.values {
			if v == candidate {
				return true
			}
		}
		return false
	case opAnd:
		for _, c := range w.children {
			if !c.Match(meta) {
				return false
			}
		}
		return true
	case opOr:
		for _, c := range w.children {
			if c.Match(meta) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
