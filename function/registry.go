package function

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Lookup is the function-lookup collaborator used by the resolver: it turns a
// name or a built-in definition into a unique identity plus definition.
type Lookup interface {
	LookupByName(name string) (Identity, *Definition, error)
	LookupBuiltIn(def *Definition) (Identity, *Definition, error)
}

// Registry is the default Lookup.  It starts with the built-in catalog and
// accepts additional user definitions.  Name lookup is case-insensitive.
type Registry struct {
	defs map[string]*Definition
}

func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]*Definition)}
	for _, d := range builtIns() {
		r.defs[strings.ToLower(d.Name())] = d
	}
	return r
}

// Register adds a user-defined function, replacing any definition already
// registered under the same name.
func (r *Registry) Register(def *Definition) {
	r.defs[strings.ToLower(def.Name())] = def
}

func (r *Registry) LookupByName(name string) (Identity, *Definition, error) {
	def, ok := r.defs[strings.ToLower(name)]
	if !ok {
		if similar := r.closestName(name); similar != "" {
			return Identity{}, nil, fmt.Errorf("unknown function %q (did you mean %q?)", name, similar)
		}
		return Identity{}, nil, fmt.Errorf("unknown function %q", name)
	}
	return UnqualifiedIdentity(def.Name()), def, nil
}

func (r *Registry) LookupBuiltIn(def *Definition) (Identity, *Definition, error) {
	registered, ok := r.defs[strings.ToLower(def.Name())]
	if !ok || registered != def {
		return Identity{}, nil, fmt.Errorf("unknown built-in function %q", def.Name())
	}
	return BuiltInIdentity(def.Name()), def, nil
}

func (r *Registry) closestName(name string) string {
	var names []string
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	best, bestDist := "", 3
	for _, n := range names {
		if d := levenshtein.ComputeDistance(strings.ToLower(name), n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}
