package resolver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tavolo/tavolo"
	"github.com/tavolo/tavolo/expr"
	"github.com/tavolo/tavolo/function"
	"github.com/tavolo/tavolo/resolver"
	"go.uber.org/zap/zaptest"
)

func relation(name string, fields ...tavolo.Field) tavolo.Relation {
	return tavolo.NewNamedRelation(name, tavolo.NewSchema(fields...))
}

func intField(name string) tavolo.Field {
	return tavolo.Field{Name: name, Type: tavolo.TypeInt64}
}

func build(t *testing.T, b *resolver.Builder) *resolver.Resolver {
	t.Helper()
	r, err := b.Build()
	require.NoError(t, err)
	return r
}

func newResolver(t *testing.T, inputs ...tavolo.Relation) *resolver.Resolver {
	t.Helper()
	return build(t, resolver.NewBuilder(nil, function.NewRegistry(), inputs...))
}

func TestResolveColumnRef(t *testing.T) {
	r := newResolver(t, relation("t", intField("a"), intField("b")))
	out, err := r.Resolve([]expr.Expr{expr.NewColumnRef("a")})
	require.NoError(t, err)
	require.Len(t, out, 1)
	field, ok := out[0].(*expr.FieldRef)
	require.True(t, ok)
	assert.Equal(t, 0, field.InputIndex)
	assert.Equal(t, 0, field.FieldIndex)
	assert.Equal(t, tavolo.TypeInt64, field.OutputType())
}

func TestResolveStar(t *testing.T) {
	r := newResolver(t, relation("t", intField("a"), intField("b")))
	out, err := r.Resolve([]expr.Expr{expr.NewStar()})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].(*expr.FieldRef).Name)
	assert.Equal(t, "b", out[1].(*expr.FieldRef).Name)
}

func TestResolveQualifiedStar(t *testing.T) {
	r := newResolver(t,
		relation("t", intField("a")),
		relation("u", intField("b"), intField("c")))
	out, err := r.Resolve([]expr.Expr{expr.NewQualifiedStar("u")})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].(*expr.FieldRef).InputIndex)
	assert.Equal(t, "b", out[0].(*expr.FieldRef).Name)

	_, err = r.Resolve([]expr.Expr{expr.NewQualifiedStar("nope")})
	assert.Error(t, err)
}

func TestAmbiguousColumn(t *testing.T) {
	r := newResolver(t,
		relation("t", intField("x")),
		relation("u", intField("x")))

	_, err := r.Resolve([]expr.Expr{expr.NewColumnRef("x")})
	require.Error(t, err)
	var verr *resolver.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), `ambiguous unqualified column "x"`)

	out, err := r.Resolve([]expr.Expr{expr.NewQualifiedColumnRef("u", "x")})
	require.NoError(t, err)
	assert.Equal(t, 1, out[0].(*expr.FieldRef).InputIndex)
	assert.Equal(t, 0, out[0].(*expr.FieldRef).FieldIndex)
}

func TestUnknownColumnSuggestion(t *testing.T) {
	r := newResolver(t, relation("t", intField("amount")))
	_, err := r.Resolve([]expr.Expr{expr.NewColumnRef("ammount")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "amount"`)
}

func TestOrderPreservation(t *testing.T) {
	r := newResolver(t, relation("t", intField("a"), intField("b")))
	out, err := r.Resolve([]expr.Expr{expr.NewStar(), expr.Int64Literal(5)})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].(*expr.FieldRef).Name)
	assert.Equal(t, "b", out[1].(*expr.FieldRef).Name)
	assert.Equal(t, int64(5), out[2].(*expr.ValueLiteral).Value)
}

func TestResolveCall(t *testing.T) {
	r := newResolver(t, relation("t", intField("a")))
	out, err := r.Resolve([]expr.Expr{expr.NewCall("sum", expr.NewColumnRef("a"))})
	require.NoError(t, err)
	require.Len(t, out, 1)
	call, ok := out[0].(*expr.ResolvedCall)
	require.True(t, ok)
	assert.Equal(t, "system.builtin.sum", call.Identity.String())
	assert.Equal(t, tavolo.TypeInt64, call.OutputType())
	_, ok = call.Args[0].(*expr.FieldRef)
	assert.True(t, ok)
}

func TestResolveNestedCall(t *testing.T) {
	r := newResolver(t, relation("t", tavolo.Field{Name: "s", Type: tavolo.TypeString}))
	out, err := r.Resolve([]expr.Expr{
		expr.NewCall("upper", expr.NewCall("lower", expr.NewColumnRef("s"))),
	})
	require.NoError(t, err)
	outer := out[0].(*expr.ResolvedCall)
	inner, ok := outer.Args[0].(*expr.ResolvedCall)
	require.True(t, ok)
	assert.Equal(t, tavolo.TypeString, inner.OutputType())
	assert.Equal(t, tavolo.TypeString, outer.OutputType())
}

func TestCallArgumentValidation(t *testing.T) {
	r := newResolver(t, relation("t", tavolo.Field{Name: "s", Type: tavolo.TypeString}))
	_, err := r.Resolve([]expr.Expr{expr.NewCall("sum", expr.NewColumnRef("s"))})
	require.Error(t, err)
	var verr *resolver.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), `"sum"`)
}

func TestUnknownFunction(t *testing.T) {
	r := newResolver(t, relation("t", intField("a")))
	_, err := r.Resolve([]expr.Expr{expr.NewCall("cuont", expr.NewColumnRef("a"))})
	require.Error(t, err)
	var verr *resolver.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), `did you mean "count"`)
}

func TestImplicitCastInsertion(t *testing.T) {
	registry := function.NewRegistry()
	registry.Register(function.NewFixedDefinition(
		"sqrt", false, []tavolo.Type{tavolo.TypeFloat64}, tavolo.TypeFloat64))
	r := build(t, resolver.NewBuilder(nil, registry, relation("t", intField("a"))))

	out, err := r.Resolve([]expr.Expr{expr.NewCall("sqrt", expr.NewColumnRef("a"))})
	require.NoError(t, err)
	call := out[0].(*expr.ResolvedCall)
	assert.Equal(t, tavolo.TypeFloat64, call.OutputType())
	cast, ok := call.Args[0].(*expr.ResolvedCall)
	require.True(t, ok)
	assert.Equal(t, "cast", cast.Def.Name())
	assert.Equal(t, tavolo.TypeFloat64, cast.OutputType())
}

func TestUncastableArgument(t *testing.T) {
	registry := function.NewRegistry()
	registry.Register(function.NewFixedDefinition(
		"sqrt", false, []tavolo.Type{tavolo.TypeFloat64}, tavolo.TypeFloat64))
	r := build(t, resolver.NewBuilder(nil, registry,
		relation("t", tavolo.Field{Name: "s", Type: tavolo.TypeString})))

	_, err := r.Resolve([]expr.Expr{expr.NewCall("sqrt", expr.NewColumnRef("s"))})
	require.Error(t, err)
	var verr *resolver.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestColumnFunctions(t *testing.T) {
	r := newResolver(t, relation("t", intField("a"), intField("b"), intField("c")))

	out, err := r.Resolve([]expr.Expr{
		expr.NewCall("columns", expr.NewColumnRef("a"), expr.NewColumnRef("c")),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].(*expr.FieldRef).Name)
	assert.Equal(t, "c", out[1].(*expr.FieldRef).Name)

	out, err = r.Resolve([]expr.Expr{
		expr.NewCall("columnsExcept", expr.NewColumnRef("b")),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].(*expr.FieldRef).Name)
	assert.Equal(t, "c", out[1].(*expr.FieldRef).Name)
}

func TestStarInsideCall(t *testing.T) {
	r := newResolver(t, relation("t", intField("a"), intField("b")))
	out, err := r.Resolve([]expr.Expr{expr.NewCall("concat", expr.NewStar())})
	require.Error(t, err) // concat requires strings; the star still expanded
	assert.Contains(t, err.Error(), `"concat"`)

	out, err = r.Resolve([]expr.Expr{expr.NewCall("count", expr.NewColumnRef("a"))})
	require.NoError(t, err)
	assert.Equal(t, tavolo.TypeInt64, out[0].OutputType())
}

func TestFlatten(t *testing.T) {
	row := tavolo.NewRowType(
		tavolo.Field{Name: "x", Type: tavolo.TypeInt64},
		tavolo.Field{Name: "y", Type: tavolo.TypeString},
	)
	r := newResolver(t, relation("t", tavolo.Field{Name: "r", Type: row}))

	out, err := r.Resolve([]expr.Expr{expr.NewCall("flatten", expr.NewColumnRef("r"))})
	require.NoError(t, err)
	require.Len(t, out, 2)
	first := out[0].(*expr.ResolvedCall)
	assert.Equal(t, "get", first.Def.Name())
	assert.Equal(t, tavolo.TypeInt64, first.OutputType())
	assert.Equal(t, tavolo.TypeString, out[1].OutputType())
}

func TestFlattenNonRow(t *testing.T) {
	r := newResolver(t, relation("t", intField("a")))
	_, err := r.Resolve([]expr.Expr{expr.NewCall("flatten", expr.NewColumnRef("a"))})
	require.Error(t, err)
	var verr *resolver.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestLocalReference(t *testing.T) {
	r := build(t, resolver.NewBuilder(nil, function.NewRegistry(), relation("t", intField("a"))).
		WithLocalReferences(expr.NewLocalRef("w", tavolo.TypeTimestamp)))

	out, err := r.Resolve([]expr.Expr{expr.NewColumnRef("w")})
	require.NoError(t, err)
	local, ok := out[0].(*expr.LocalRef)
	require.True(t, ok)
	assert.Equal(t, tavolo.TypeTimestamp, local.OutputType())

	// A real column shadows a local reference of the same name.
	r = build(t, resolver.NewBuilder(nil, function.NewRegistry(), relation("t", intField("a"))).
		WithLocalReferences(expr.NewLocalRef("a", tavolo.TypeTimestamp)))
	out, err = r.Resolve([]expr.Expr{expr.NewColumnRef("a")})
	require.NoError(t, err)
	_, ok = out[0].(*expr.FieldRef)
	assert.True(t, ok)
}

func TestAmbiguousColumnNotMaskedByLocal(t *testing.T) {
	// A local reference with the same name must not swallow the
	// ambiguity failure for an unqualified column exposed by two inputs.
	r := build(t, resolver.NewBuilder(nil, function.NewRegistry(),
		relation("t", intField("x")),
		relation("u", intField("x"))).
		WithLocalReferences(expr.NewLocalRef("x", tavolo.TypeTimestamp)))

	_, err := r.Resolve([]expr.Expr{expr.NewColumnRef("x")})
	require.Error(t, err)
	var verr *resolver.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), `ambiguous unqualified column "x"`)
}

func TestFlattenOverCall(t *testing.T) {
	row := tavolo.NewRowType(
		tavolo.Field{Name: "x", Type: tavolo.TypeInt64},
		tavolo.Field{Name: "y", Type: tavolo.TypeString},
	)
	registry := function.NewRegistry()
	registry.Register(function.NewFixedDefinition(
		"parse", false, []tavolo.Type{tavolo.TypeString}, row))
	r := build(t, resolver.NewBuilder(nil, registry,
		relation("t", tavolo.Field{Name: "s", Type: tavolo.TypeString})))

	out, err := r.Resolve([]expr.Expr{
		expr.NewCall("flatten", expr.NewCall("parse", expr.NewColumnRef("s"))),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	first := out[0].(*expr.ResolvedCall)
	assert.Equal(t, "get", first.Def.Name())
	inner, ok := first.Args[0].(*expr.ResolvedCall)
	require.True(t, ok)
	assert.Equal(t, "parse", inner.Def.Name())
	assert.Equal(t, tavolo.TypeInt64, first.OutputType())
	assert.Equal(t, tavolo.TypeString, out[1].OutputType())
}

// passthroughRule leaves the expression list untouched, simulating a broken
// custom pipeline.
type passthroughRule struct{}

func (passthroughRule) Transform(exprs []expr.Expr, _ resolver.Context) ([]expr.Expr, error) {
	return exprs, nil
}

func TestVerificationCatchesUnresolved(t *testing.T) {
	r := build(t, resolver.NewBuilder(nil, function.NewRegistry(), relation("t", intField("a"))).
		WithRules(passthroughRule{}))

	_, err := r.Resolve([]expr.Expr{expr.NewColumnRef("a")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrSystem))
	var verr *resolver.ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestResolveIdempotent(t *testing.T) {
	r := newResolver(t, relation("t", intField("a"), intField("b")))
	first, err := r.Resolve([]expr.Expr{expr.NewStar(), expr.NewCall("sum", expr.NewColumnRef("a"))})
	require.NoError(t, err)

	// Feeding an already-resolved list back through leaves it unchanged.
	again := make([]expr.Expr, len(first))
	for i, e := range first {
		again[i] = e
	}
	second, err := r.Resolve(again)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}
}

func TestPipelineLogging(t *testing.T) {
	r := build(t, resolver.NewBuilder(nil, function.NewRegistry(), relation("t", intField("a"))).
		WithLogger(zaptest.NewLogger(t)))
	out, err := r.Resolve([]expr.Expr{expr.NewColumnRef("a")})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestResolveExpanding(t *testing.T) {
	r := newResolver(t, relation("t", intField("a"), intField("b")))
	out, err := r.ResolveExpanding([]expr.Expr{expr.NewStar(), expr.NewCall("sum", expr.NewColumnRef("b"))})
	require.NoError(t, err)
	require.Len(t, out, 3)
	// Expansion leaves unresolved nodes behind.
	_, ok := out[0].(*expr.ColumnRef)
	assert.True(t, ok)
	call, ok := out[2].(*expr.UnresolvedCall)
	require.True(t, ok)
	assert.Equal(t, "sum", call.Def.Name())
}
