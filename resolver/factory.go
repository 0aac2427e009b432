package resolver

import (
	"github.com/tavolo/tavolo"
	"github.com/tavolo/tavolo/expr"
	"github.com/tavolo/tavolo/function"
)

// PostResolverFactory builds resolved call expressions after the actual
// resolution has happened, for later-stage tree rewrites such as renaming a
// column.  No further resolution or validation runs, so callers must only
// pass expressions that are already fully resolved and valid for the target
// function.
type PostResolverFactory struct {
	functions function.Lookup
}

func newPostResolverFactory(functions function.Lookup) *PostResolverFactory {
	return &PostResolverFactory{functions: functions}
}

// As wraps a resolved expression in the alias-assignment function.  The
// output type equals the input type.
func (f *PostResolverFactory) As(e expr.ResolvedExpr, alias string) (*expr.ResolvedCall, error) {
	id, def, err := f.functions.LookupBuiltIn(function.As)
	if err != nil {
		return nil, systemf("%s", err)
	}
	return expr.NewResolvedCall(id, def, []expr.Expr{e, expr.StringLiteral(alias)}, e.OutputType()), nil
}

// Cast wraps a resolved expression in the cast function with an explicit
// target-type literal.  The output type equals the target type.
func (f *PostResolverFactory) Cast(e expr.ResolvedExpr, typ tavolo.Type) (*expr.ResolvedCall, error) {
	id, def, err := f.functions.LookupBuiltIn(function.Cast)
	if err != nil {
		return nil, systemf("%s", err)
	}
	return expr.NewResolvedCall(id, def, []expr.Expr{e, expr.NewTypeLiteral(typ)}, typ), nil
}

// WrappingCall wraps a resolved expression in a single-argument built-in.
// The wrap must be type preserving; the output type equals the input type.
func (f *PostResolverFactory) WrappingCall(def *function.Definition, e expr.ResolvedExpr) (*expr.ResolvedCall, error) {
	id, resolved, err := f.functions.LookupBuiltIn(def)
	if err != nil {
		return nil, systemf("%s", err)
	}
	return expr.NewResolvedCall(id, resolved, []expr.Expr{e}, e.OutputType()), nil
}
