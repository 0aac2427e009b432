package resolver

import (
	"github.com/tavolo/tavolo"
	"github.com/tavolo/tavolo/expr"
	"github.com/tavolo/tavolo/function"
	"github.com/tavolo/tavolo/planner"
)

// Context is the read-only capability bundle handed to every rule for the
// lifetime of one Resolve or ResolveExpanding call.  All state behind it is
// fixed when the resolver is built; no lookup mutates the resolver.
type Context interface {
	// LookupField binds a column name against the fixed input relations.
	// An empty relation means unqualified lookup, which fails on
	// ambiguity.
	LookupField(relation, name string) (*expr.FieldRef, error)
	// InputColumns lists qualified column references for all inputs, or
	// for one named input, in declared order.
	InputColumns(relation string) ([]*expr.ColumnRef, error)
	// LookupTable resolves a catalog table by name.
	LookupTable(name string) (tavolo.Relation, bool)
	// Functions is the function-lookup collaborator.
	Functions() function.Lookup
	// LocalReference returns the local pseudo-field declared under name.
	LocalReference(name string) (*expr.LocalRef, bool)
	// OverWindow returns the eagerly resolved over window declared under
	// the given alias expression.
	OverWindow(alias expr.Expr) (*LogicalOverWindow, bool)
	// PostResolverFactory builds already-valid resolved calls, e.g. for
	// implicit cast insertion.
	PostResolverFactory() *PostResolverFactory
	// Bridge converts a resolved expression to its planner form, exposing
	// the concrete runtime type.
	Bridge(e expr.Expr) (planner.Expr, error)
}

type resolverContext struct {
	r *Resolver
}

var _ Context = (*resolverContext)(nil)

func (c *resolverContext) LookupField(relation, name string) (*expr.FieldRef, error) {
	return c.r.fields.lookupField(relation, name)
}

func (c *resolverContext) InputColumns(relation string) ([]*expr.ColumnRef, error) {
	return c.r.fields.allColumns(relation)
}

func (c *resolverContext) LookupTable(name string) (tavolo.Relation, bool) {
	if c.r.tables == nil {
		return nil, false
	}
	return c.r.tables.LookupTable(name)
}

func (c *resolverContext) Functions() function.Lookup {
	return c.r.functions
}

func (c *resolverContext) LocalReference(name string) (*expr.LocalRef, bool) {
	ref, ok := c.r.locals[name]
	return ref, ok
}

func (c *resolverContext) OverWindow(alias expr.Expr) (*LogicalOverWindow, bool) {
	ref, ok := alias.(*expr.ColumnRef)
	if !ok || ref.Relation != "" {
		return nil, false
	}
	w, ok := c.r.overs[ref.Name]
	return w, ok
}

func (c *resolverContext) PostResolverFactory() *PostResolverFactory {
	return c.r.factory
}

func (c *resolverContext) Bridge(e expr.Expr) (planner.Expr, error) {
	return planner.Convert(e)
}
