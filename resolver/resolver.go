// Package resolver turns unresolved expression trees produced by a
// declarative table API into fully resolved trees consumable by a query
// planner.  Resolution is an ordered pipeline of rules sharing one read-only
// context; window boundaries take a narrower path that skips call-expansion
// rules.
package resolver

import (
	"github.com/tavolo/tavolo"
	"github.com/tavolo/tavolo/expr"
	"github.com/tavolo/tavolo/function"
	"github.com/tavolo/tavolo/planner"
	"go.uber.org/zap"
)

// Resolver resolves the expressions of one operation against a fixed set of
// input relations, declared over windows, and local references.  Build one
// per operation being analyzed and discard it afterward; its state is
// read-only after construction.
type Resolver struct {
	fields    *fieldReferenceLookup
	tables    TableLookup
	functions function.Lookup
	factory   *PostResolverFactory
	locals    map[string]*expr.LocalRef
	overs     map[string]*LogicalOverWindow
	rules     []Rule
	expanding []Rule
	logger    *zap.Logger
}

// Builder assembles a Resolver.  Input relations fix the field-lookup order;
// over windows and local references declared here are resolved or indexed
// once during Build.
type Builder struct {
	inputs      []tavolo.Relation
	tables      TableLookup
	functions   function.Lookup
	overWindows []OverWindow
	locals      []*expr.LocalRef
	rules       []Rule
	logger      *zap.Logger
}

// NewBuilder creates a builder bound to the given collaborators and ordered
// input relations.
func NewBuilder(tables TableLookup, functions function.Lookup, inputs ...tavolo.Relation) *Builder {
	return &Builder{
		inputs:    inputs,
		tables:    tables,
		functions: functions,
	}
}

// WithOverWindows declares the over windows referenced by over() calls in
// the expressions to resolve.  They are resolved eagerly during Build.
func (b *Builder) WithOverWindows(windows ...OverWindow) *Builder {
	b.overWindows = append(b.overWindows, windows...)
	return b
}

// WithLocalReferences declares pseudo-fields, e.g. a group-window alias
// materialized by an earlier windowed aggregation.
func (b *Builder) WithLocalReferences(refs ...*expr.LocalRef) *Builder {
	b.locals = append(b.locals, refs...)
	return b
}

// WithRules replaces the default full pipeline with a custom ordered rule
// list.  ResolveExpanding keeps the default expanding rules.
func (b *Builder) WithRules(rules ...Rule) *Builder {
	b.rules = rules
	return b
}

// WithLogger sets the logger used for pipeline debug logging.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build constructs the resolver, resolving all declared over windows.
func (b *Builder) Build() (*Resolver, error) {
	r := &Resolver{
		fields:    newFieldReferenceLookup(b.inputs),
		tables:    b.tables,
		functions: b.functions,
		factory:   newPostResolverFactory(b.functions),
		locals:    make(map[string]*expr.LocalRef, len(b.locals)),
		overs:     make(map[string]*LogicalOverWindow, len(b.overWindows)),
		rules:     b.rules,
		expanding: ExpandingRules(),
		logger:    b.logger,
	}
	if r.rules == nil {
		r.rules = AllRules()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	for _, ref := range b.locals {
		r.locals[ref.Name] = ref
	}
	for _, w := range b.overWindows {
		ref, ok := w.Alias.(*expr.ColumnRef)
		if !ok || ref.Relation != "" {
			return nil, validationf("over window alias must be an unresolved field reference")
		}
		resolved, err := r.resolveOverWindow(w)
		if err != nil {
			return nil, err
		}
		r.overs[ref.Name] = resolved
	}
	return r, nil
}

// Resolve runs the full rule pipeline over the expression list of one
// operation, then verifies that every node came out resolved.  All
// expressions of the operation must be given at once because some rules
// assume sibling context.  On failure nothing is returned; partial results
// are never exposed.
func (r *Resolver) Resolve(exprs []expr.Expr) ([]expr.ResolvedExpr, error) {
	out, err := r.runRules(r.rules, exprs)
	if err != nil {
		return nil, err
	}
	resolved := make([]expr.ResolvedExpr, len(out))
	for i, e := range out {
		re, err := verifyResolved(e)
		if err != nil {
			return nil, err
		}
		resolved[i] = re
	}
	return resolved, nil
}

// ResolveExpanding runs only the arity-changing expansion rules.  The result
// may still contain unresolved expressions usable for further API
// transformations.
func (r *Resolver) ResolveExpanding(exprs []expr.Expr) ([]expr.Expr, error) {
	return r.runRules(r.expanding, exprs)
}

// PostResolverFactory builds resolved expressions for transformations after
// the actual resolution.
func (r *Resolver) PostResolverFactory() *PostResolverFactory {
	return r.factory
}

// prepareExpressions expands each expression and field-resolves every
// expansion result, preserving order.
func (r *Resolver) prepareExpressions(exprs []expr.Expr) ([]expr.Expr, error) {
	var out []expr.Expr
	for _, e := range exprs {
		expanded, err := r.ResolveExpanding([]expr.Expr{e})
		if err != nil {
			return nil, err
		}
		for _, ex := range expanded {
			resolved, err := r.resolveSingle(ex)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}
	}
	return out, nil
}

// resolveSingle runs only the field-resolution rule over a one-element list.
// Window boundaries are expected to already be shaped, so they must not go
// through the call-expansion rules meant for projection lists.
func (r *Resolver) resolveSingle(e expr.Expr) (expr.Expr, error) {
	out, err := fieldResolveRule{}.Transform([]expr.Expr{e}, &resolverContext{r: r})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, systemf("expected a single expression as a result, got %d", len(out))
	}
	return out[0], nil
}

func (r *Resolver) resolveSingleBridged(e expr.Expr) (planner.Expr, error) {
	resolved, err := r.resolveSingle(e)
	if err != nil {
		return nil, err
	}
	return planner.Convert(resolved)
}
