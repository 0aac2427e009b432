package resolver

import (
	"sort"
	"strings"

	"errors"

	"github.com/agnivade/levenshtein"
	"github.com/tavolo/tavolo"
	"github.com/tavolo/tavolo/expr"
)

// errColumnNotFound marks unqualified lookup misses, which are the only
// failures eligible for the local-reference fallback during field
// resolution.  Ambiguity errors must never be masked by a local.
var errColumnNotFound = errors.New("column not found")

// TableLookup resolves a catalog table by name.  It is threaded through the
// resolution context for rules that expand table-qualified stars; the core's
// own procedures never call it.
type TableLookup interface {
	LookupTable(name string) (tavolo.Relation, bool)
}

// fieldReferenceLookup resolves column names against the resolver's fixed,
// ordered list of input relations.
type fieldReferenceLookup struct {
	inputs []tavolo.Relation
}

func newFieldReferenceLookup(inputs []tavolo.Relation) *fieldReferenceLookup {
	return &fieldReferenceLookup{inputs: inputs}
}

// lookupField binds a column name to an input relation and field position.
// An unqualified name matching more than one input is an ambiguity error.
func (l *fieldReferenceLookup) lookupField(relation, name string) (*expr.FieldRef, error) {
	if relation != "" {
		for i, input := range l.inputs {
			if input.Name() != relation {
				continue
			}
			f, pos, ok := input.Schema().LookupField(name)
			if !ok {
				return nil, validationf("column %q not found in relation %q", name, relation)
			}
			return expr.NewFieldRef(f.Name, i, pos, f.Type), nil
		}
		return nil, validationf("unknown relation %q", relation)
	}
	var found *expr.FieldRef
	for i, input := range l.inputs {
		f, pos, ok := input.Schema().LookupField(name)
		if !ok {
			continue
		}
		if found != nil {
			return nil, validationf("ambiguous unqualified column %q", name)
		}
		found = expr.NewFieldRef(f.Name, i, pos, f.Type)
	}
	if found == nil {
		if similar := l.closestColumn(name); similar != "" {
			return nil, validationWrapf(errColumnNotFound, "column %q not found in any input (did you mean %q?)", name, similar)
		}
		return nil, validationWrapf(errColumnNotFound, "column %q not found in any input", name)
	}
	return found, nil
}

// allColumns returns qualified column references for every field of every
// input, or of one named input, in declared order.
func (l *fieldReferenceLookup) allColumns(relation string) ([]*expr.ColumnRef, error) {
	var out []*expr.ColumnRef
	matched := false
	for _, input := range l.inputs {
		if relation != "" && input.Name() != relation {
			continue
		}
		matched = true
		for _, f := range input.Schema().Fields() {
			out = append(out, expr.NewQualifiedColumnRef(input.Name(), f.Name))
		}
	}
	if relation != "" && !matched {
		return nil, validationf("unknown relation %q", relation)
	}
	return out, nil
}

func (l *fieldReferenceLookup) closestColumn(name string) string {
	var names []string
	for _, input := range l.inputs {
		for _, f := range input.Schema().Fields() {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	best, bestDist := "", 3
	for _, n := range names {
		if d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(n)); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}
