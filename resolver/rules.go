package resolver

import (
	"errors"

	"github.com/tavolo/tavolo"
	"github.com/tavolo/tavolo/expr"
	"github.com/tavolo/tavolo/function"
)

// The default rule set.  Rules run in the order given by AllRules; each one
// assumes the invariants established by its predecessors.

// lookupCallByNameRule turns every CallByName into an UnresolvedCall with a
// looked-up function definition, recursing into arguments.  The identity
// stays unqualified until qualifyBuiltInsRule runs.
type lookupCallByNameRule struct{}

func (lookupCallByNameRule) Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		mapped, err := lookupCalls(e, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = mapped
	}
	return out, nil
}

func lookupCalls(e expr.Expr, ctx Context) (expr.Expr, error) {
	switch e := e.(type) {
	case *expr.CallByName:
		id, def, err := ctx.Functions().LookupByName(e.Name)
		if err != nil {
			return nil, validationf("%s", err)
		}
		args, err := lookupCallsInList(e.Args, ctx)
		if err != nil {
			return nil, err
		}
		return expr.NewUnresolvedCall(id, def, args), nil
	case *expr.UnresolvedCall:
		args, err := lookupCallsInList(e.Args, ctx)
		if err != nil {
			return nil, err
		}
		return expr.NewUnresolvedCall(e.Identity, e.Def, args), nil
	}
	return e, nil
}

func lookupCallsInList(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		mapped, err := lookupCalls(e, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = mapped
	}
	return out, nil
}

// flattenStarRule expands stars into qualified column references over the
// inputs, both at the top level of the list and inside call arguments.
type flattenStarRule struct{}

func (flattenStarRule) Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	var out []expr.Expr
	for _, e := range exprs {
		if star, ok := e.(*expr.Star); ok {
			columns, err := ctx.InputColumns(star.Relation)
			if err != nil {
				return nil, err
			}
			for _, c := range columns {
				out = append(out, c)
			}
			continue
		}
		flattened, err := flattenStarsInCalls(e, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, flattened)
	}
	return out, nil
}

func flattenStarsInCalls(e expr.Expr, ctx Context) (expr.Expr, error) {
	call, ok := e.(*expr.UnresolvedCall)
	if !ok {
		return e, nil
	}
	var args []expr.Expr
	for _, arg := range call.Args {
		if star, ok := arg.(*expr.Star); ok {
			columns, err := ctx.InputColumns(star.Relation)
			if err != nil {
				return nil, err
			}
			for _, c := range columns {
				args = append(args, c)
			}
			continue
		}
		flattened, err := flattenStarsInCalls(arg, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, flattened)
	}
	return expr.NewUnresolvedCall(call.Identity, call.Def, args), nil
}

// expandColumnFunctionsRule replaces columns(...) and columnsExcept(...)
// calls with the column references they select, splicing the expansion into
// the surrounding list or argument list.
type expandColumnFunctionsRule struct{}

func (expandColumnFunctionsRule) Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	var out []expr.Expr
	for _, e := range exprs {
		expanded, err := expandColumnFunction(e, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func expandColumnFunction(e expr.Expr, ctx Context) ([]expr.Expr, error) {
	call, ok := e.(*expr.UnresolvedCall)
	if !ok {
		return []expr.Expr{e}, nil
	}
	switch call.Def {
	case function.Columns:
		for _, arg := range call.Args {
			if _, ok := arg.(*expr.ColumnRef); !ok {
				return nil, validationf("columns() arguments must be column references, got %s", arg)
			}
		}
		return call.Args, nil
	case function.ColumnsExcept:
		excluded := make(map[string]bool)
		for _, arg := range call.Args {
			ref, ok := arg.(*expr.ColumnRef)
			if !ok {
				return nil, validationf("columnsExcept() arguments must be column references, got %s", arg)
			}
			excluded[ref.Name] = true
		}
		columns, err := ctx.InputColumns("")
		if err != nil {
			return nil, err
		}
		var out []expr.Expr
		for _, c := range columns {
			if !excluded[c.Name] {
				out = append(out, c)
			}
		}
		return out, nil
	}
	var args []expr.Expr
	for _, arg := range call.Args {
		expanded, err := expandColumnFunction(arg, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, expanded...)
	}
	return []expr.Expr{expr.NewUnresolvedCall(call.Identity, call.Def, args)}, nil
}

// overWindowsRule joins over(agg, w) calls with the over window eagerly
// resolved under alias w, producing a single call carrying the window's
// resolved order, bound, and partitioning expressions.
type overWindowsRule struct{}

func (overWindowsRule) Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		call, ok := e.(*expr.UnresolvedCall)
		if !ok || call.Def != function.Over {
			out[i] = e
			continue
		}
		if len(call.Args) != 2 {
			return nil, validationf("over() takes an aggregate and a window alias, got %d arguments", len(call.Args))
		}
		window, ok := ctx.OverWindow(call.Args[1])
		if !ok {
			return nil, validationf("over window %s is not declared", call.Args[1])
		}
		args := []expr.Expr{call.Args[0], window.Order, window.Preceding}
		if window.Following != nil {
			args = append(args, window.Following)
		}
		args = append(args, window.Partitioning...)
		out[i] = expr.NewUnresolvedCall(call.Identity, call.Def, args)
	}
	return out, nil
}

// fieldResolveRule resolves remaining column references to concrete field
// references or local references, recursing into call arguments.  Fields win
// over local references; an unqualified name exposed by more than one input
// is an ambiguity error even when a same-named local exists, so only
// not-found misses fall back to the local dictionary.
type fieldResolveRule struct{}

func (fieldResolveRule) Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		resolved, err := resolveFields(e, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func resolveFields(e expr.Expr, ctx Context) (expr.Expr, error) {
	switch e := e.(type) {
	case *expr.ColumnRef:
		field, err := ctx.LookupField(e.Relation, e.Name)
		if err != nil {
			if e.Relation == "" && errors.Is(err, errColumnNotFound) {
				if local, ok := ctx.LocalReference(e.Name); ok {
					return local, nil
				}
			}
			return nil, err
		}
		return field, nil
	case *expr.UnresolvedCall:
		args := make([]expr.Expr, len(e.Args))
		for i, arg := range e.Args {
			resolved, err := resolveFields(arg, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = resolved
		}
		return expr.NewUnresolvedCall(e.Identity, e.Def, args), nil
	}
	return e, nil
}

// flattenCallRule inlines flatten(e) over a row-typed expression into one
// get(e, i) call per row field.  A call argument is qualified and resolved
// in place so flatten composes over function results, whose types are not
// known until call resolution.  The expansion is multi-valued, so it can
// only happen at the top level of the list.
type flattenCallRule struct{}

func (flattenCallRule) Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	var out []expr.Expr
	for _, e := range exprs {
		call, ok := e.(*expr.UnresolvedCall)
		if !ok || call.Def != function.Flatten {
			if err := rejectNestedFlatten(e); err != nil {
				return nil, err
			}
			out = append(out, e)
			continue
		}
		if len(call.Args) != 1 {
			return nil, validationf("flatten() takes exactly one argument, got %d", len(call.Args))
		}
		child := call.Args[0]
		if inner, ok := child.(*expr.UnresolvedCall); ok {
			qualified, err := qualifyBuiltIns(inner, ctx)
			if err != nil {
				return nil, err
			}
			child, err = resolveCall(qualified, ctx)
			if err != nil {
				return nil, err
			}
		}
		arg, ok := child.(expr.ResolvedExpr)
		if !ok {
			return nil, validationf("cannot flatten unresolved expression %s", call.Args[0])
		}
		row, ok := arg.OutputType().(*tavolo.RowType)
		if !ok {
			return nil, validationf("flatten() requires a row-typed argument, got %s", arg.OutputType())
		}
		for i := range row.Fields {
			out = append(out, expr.NewUnresolvedCall(
				function.UnqualifiedIdentity(function.Get.Name()),
				function.Get,
				[]expr.Expr{arg, expr.Int64Literal(int64(i))},
			))
		}
	}
	return out, nil
}

func rejectNestedFlatten(e expr.Expr) error {
	call, ok := e.(*expr.UnresolvedCall)
	if !ok {
		return nil
	}
	for _, arg := range call.Args {
		if inner, ok := arg.(*expr.UnresolvedCall); ok && inner.Def == function.Flatten {
			return validationf("flatten() is not supported inside other calls")
		}
		if err := rejectNestedFlatten(arg); err != nil {
			return err
		}
	}
	return nil
}

// qualifyBuiltInsRule fills in the full system identity on calls whose
// definition came from the registry but whose identity is still unqualified.
type qualifyBuiltInsRule struct{}

func (qualifyBuiltInsRule) Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		qualified, err := qualifyBuiltIns(e, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = qualified
	}
	return out, nil
}

func qualifyBuiltIns(e expr.Expr, ctx Context) (expr.Expr, error) {
	call, ok := e.(*expr.UnresolvedCall)
	if !ok {
		return e, nil
	}
	args := make([]expr.Expr, len(call.Args))
	for i, arg := range call.Args {
		qualified, err := qualifyBuiltIns(arg, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = qualified
	}
	id := call.Identity
	if !id.IsQualified() {
		qualified, _, err := ctx.Functions().LookupBuiltIn(call.Def)
		if err != nil {
			return nil, validationf("%s", err)
		}
		id = qualified
	}
	return expr.NewUnresolvedCall(id, call.Def, args), nil
}

// resolveCallsByArgumentsRule resolves calls bottom-up: validates argument
// types against the definition's signature, inserts implicit widening casts
// for definitions with fixed parameter types, infers the output type, and
// produces ResolvedCall nodes.  Calls with unresolved arguments are left
// untouched for the verification pass to report.
type resolveCallsByArgumentsRule struct{}

func (resolveCallsByArgumentsRule) Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		resolved, err := resolveCall(e, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func resolveCall(e expr.Expr, ctx Context) (expr.Expr, error) {
	call, ok := e.(*expr.UnresolvedCall)
	if !ok {
		return e, nil
	}
	args := make([]expr.Expr, len(call.Args))
	argTypes := make([]tavolo.Type, len(call.Args))
	for i, arg := range call.Args {
		resolved, err := resolveCall(arg, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = resolved
		re, ok := resolved.(expr.ResolvedExpr)
		if !ok {
			// Leave the call unresolved; verification reports it as
			// a rule-engine defect.
			return expr.NewUnresolvedCall(call.Identity, call.Def, args), nil
		}
		argTypes[i] = re.OutputType()
	}
	if call.Def == function.Get {
		return resolveGetCall(call, args, argTypes)
	}
	if params := call.Def.FixedParams(); params != nil {
		if len(args) != len(params) {
			return nil, validationf("%q: expected %d argument(s) but called with %d",
				call.Def.Name(), len(params), len(args))
		}
		for i, want := range params {
			if tavolo.SameType(argTypes[i], want) {
				continue
			}
			if !function.ImplicitCastable(argTypes[i], want) {
				return nil, validationf("%q: argument %d must be %s, got %s",
					call.Def.Name(), i+1, want, argTypes[i])
			}
			cast, err := ctx.PostResolverFactory().Cast(args[i].(expr.ResolvedExpr), want)
			if err != nil {
				return nil, err
			}
			args[i] = cast
			argTypes[i] = want
		}
	} else if err := call.Def.Validate(argTypes); err != nil {
		return nil, validationf("%q: %s", call.Def.Name(), err)
	}
	output, err := call.Def.ReturnType(argTypes)
	if err != nil {
		return nil, systemf("%q: %s", call.Def.Name(), err)
	}
	return expr.NewResolvedCall(call.Identity, call.Def, args, output), nil
}

// resolveGetCall infers get's output type from the row type and the literal
// index, which signature-level inference cannot see.
func resolveGetCall(call *expr.UnresolvedCall, args []expr.Expr, argTypes []tavolo.Type) (expr.Expr, error) {
	if err := call.Def.Validate(argTypes); err != nil {
		return nil, validationf("%q: %s", call.Def.Name(), err)
	}
	index, ok := args[1].(*expr.ValueLiteral)
	if !ok {
		return nil, validationf("get() requires a literal index, got %s", args[1])
	}
	i, ok := index.Value.(int64)
	if !ok {
		return nil, validationf("get() requires an int64 index, got %v", index.Value)
	}
	row := argTypes[0].(*tavolo.RowType)
	if i < 0 || int(i) >= len(row.Fields) {
		return nil, validationf("get() index %d out of range for %s", i, row)
	}
	return expr.NewResolvedCall(call.Identity, call.Def, args, row.Fields[i].Type), nil
}
