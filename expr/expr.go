// Package expr defines the expression tree consumed and produced by the
// resolver.  Expressions start out unresolved (symbolic names, stars, calls
// by name) and are rewritten by resolver rules into resolved variants that
// carry concrete bindings and types.
package expr

import (
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
	"github.com/tavolo/tavolo"
	"github.com/tavolo/tavolo/function"
)

type Expr interface {
	exprNode()
}

// The unresolved variants.
type (
	// ColumnRef names a column symbolically, optionally qualified by a
	// relation name.
	ColumnRef struct {
		Relation string // empty means unqualified
		Name     string
	}
	// Star expands to all columns of the inputs, or of one named relation.
	Star struct {
		Relation string
	}
	// CallByName is a call whose function has not been looked up yet.
	CallByName struct {
		Name string
		Args []Expr
	}
	// TableRef names a catalog table, used by rules that expand
	// table-qualified stars.
	TableRef struct {
		Name string
	}
	// UnresolvedCall has a looked-up function definition but possibly
	// unresolved arguments and an unqualified identity.
	UnresolvedCall struct {
		Identity function.Identity
		Def      *function.Definition
		Args     []Expr
	}
)

// ResolvedExpr is implemented by every resolved variant.  After a full
// resolution pass every reachable node satisfies this interface.
type ResolvedExpr interface {
	Expr
	OutputType() tavolo.Type
	resolvedNode()
}

// The resolved variants.
type (
	// FieldRef binds a column to a concrete input relation and field
	// position.
	FieldRef struct {
		Name       string
		InputIndex int
		FieldIndex int
		Type       tavolo.Type
	}
	// ResolvedCall is a call with a qualified identity, a validated
	// definition, and a concrete output type.  Its arguments are resolved
	// as well; the verification pass enforces this.
	ResolvedCall struct {
		Identity function.Identity
		Def      *function.Definition
		Args     []Expr
		Type     tavolo.Type
	}
	ValueLiteral struct {
		Value any
		Type  tavolo.Type
	}
	TypeLiteral struct {
		Type tavolo.Type
	}
	// WindowRef is the resolved alias binding of a group window.
	WindowRef struct {
		Name string
		Type tavolo.Type
	}
	// LocalRef names a pseudo-field introduced by the operation under
	// analysis, e.g. a group-window alias.
	LocalRef struct {
		Name string
		Type tavolo.Type
	}
)

func (*ColumnRef) exprNode()      {}
func (*Star) exprNode()           {}
func (*CallByName) exprNode()     {}
func (*TableRef) exprNode()       {}
func (*UnresolvedCall) exprNode() {}
func (*FieldRef) exprNode()       {}
func (*ResolvedCall) exprNode()   {}
func (*ValueLiteral) exprNode()   {}
func (*TypeLiteral) exprNode()    {}
func (*WindowRef) exprNode()      {}
func (*LocalRef) exprNode()       {}

func (*FieldRef) resolvedNode()     {}
func (*ResolvedCall) resolvedNode() {}
func (*ValueLiteral) resolvedNode() {}
func (*TypeLiteral) resolvedNode()  {}
func (*WindowRef) resolvedNode()    {}
func (*LocalRef) resolvedNode()     {}

func (e *FieldRef) OutputType() tavolo.Type     { return e.Type }
func (e *ResolvedCall) OutputType() tavolo.Type { return e.Type }
func (e *ValueLiteral) OutputType() tavolo.Type { return e.Type }
func (e *TypeLiteral) OutputType() tavolo.Type  { return e.Type }
func (e *WindowRef) OutputType() tavolo.Type    { return e.Type }
func (e *LocalRef) OutputType() tavolo.Type     { return e.Type }

func NewColumnRef(name string) *ColumnRef {
	return &ColumnRef{Name: name}
}

func NewQualifiedColumnRef(relation, name string) *ColumnRef {
	return &ColumnRef{Relation: relation, Name: name}
}

func NewStar() *Star { return &Star{} }

func NewQualifiedStar(relation string) *Star {
	return &Star{Relation: relation}
}

func NewCall(name string, args ...Expr) *CallByName {
	return &CallByName{Name: name, Args: args}
}

func NewUnresolvedCall(id function.Identity, def *function.Definition, args []Expr) *UnresolvedCall {
	return &UnresolvedCall{Identity: id, Def: def, Args: args}
}

func NewResolvedCall(id function.Identity, def *function.Definition, args []Expr, typ tavolo.Type) *ResolvedCall {
	return &ResolvedCall{Identity: id, Def: def, Args: args, Type: typ}
}

func NewFieldRef(name string, input, field int, typ tavolo.Type) *FieldRef {
	return &FieldRef{Name: name, InputIndex: input, FieldIndex: field, Type: typ}
}

func NewLocalRef(name string, typ tavolo.Type) *LocalRef {
	return &LocalRef{Name: name, Type: typ}
}

func NewWindowRef(name string, typ tavolo.Type) *WindowRef {
	return &WindowRef{Name: name, Type: typ}
}

func NewTypeLiteral(typ tavolo.Type) *TypeLiteral {
	return &TypeLiteral{Type: typ}
}

func BoolLiteral(v bool) *ValueLiteral {
	return &ValueLiteral{Value: v, Type: tavolo.TypeBool}
}

func Int64Literal(v int64) *ValueLiteral {
	return &ValueLiteral{Value: v, Type: tavolo.TypeInt64}
}

func Float64Literal(v float64) *ValueLiteral {
	return &ValueLiteral{Value: v, Type: tavolo.TypeFloat64}
}

func StringLiteral(v string) *ValueLiteral {
	return &ValueLiteral{Value: v, Type: tavolo.TypeString}
}

// IntervalLiteral builds an interval literal from a duration, used for
// window sizes, slides, gaps, and over-window bounds.
func IntervalLiteral(d time.Duration) *ValueLiteral {
	return &ValueLiteral{Value: d, Type: tavolo.TypeInterval}
}

// TimestampLiteral parses text in any common layout into a timestamp
// literal.
func TimestampLiteral(text string) (*ValueLiteral, error) {
	t, err := dateparse.ParseAny(text)
	if err != nil {
		return nil, err
	}
	return &ValueLiteral{Value: t, Type: tavolo.TypeTimestamp}, nil
}

// DecimalLiteral parses text into an exact decimal literal.
func DecimalLiteral(text string) (*ValueLiteral, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, err
	}
	return &ValueLiteral{Value: d, Type: tavolo.TypeDecimal}, nil
}
