// Package planner holds the lower-level typed expression form consumed by
// the query planner.  The resolver bridges resolved expressions into this
// form when it needs a concrete runtime type, e.g. while building window
// alias bindings.
package planner

import (
	"fmt"

	"github.com/tavolo/tavolo"
	"github.com/tavolo/tavolo/expr"
	"github.com/tavolo/tavolo/function"
)

type Expr interface {
	ResultType() tavolo.Type
	plannerNode()
}

type (
	// FieldAccess reads one field of one input relation by position.
	FieldAccess struct {
		Name  string
		Input int
		Field int
		Type  tavolo.Type
	}
	Literal struct {
		Value any
		Type  tavolo.Type
	}
	TypeValue struct {
		Type tavolo.Type
	}
	Call struct {
		Identity function.Identity
		Args     []Expr
		Type     tavolo.Type
	}
	WindowAttribute struct {
		Name string
		Type tavolo.Type
	}
	LocalAccess struct {
		Name string
		Type tavolo.Type
	}
)

func (*FieldAccess) plannerNode()     {}
func (*Literal) plannerNode()         {}
func (*TypeValue) plannerNode()       {}
func (*Call) plannerNode()            {}
func (*WindowAttribute) plannerNode() {}
func (*LocalAccess) plannerNode()     {}

func (e *FieldAccess) ResultType() tavolo.Type     { return e.Type }
func (e *Literal) ResultType() tavolo.Type         { return e.Type }
func (e *TypeValue) ResultType() tavolo.Type       { return e.Type }
func (e *Call) ResultType() tavolo.Type            { return e.Type }
func (e *WindowAttribute) ResultType() tavolo.Type { return e.Type }
func (e *LocalAccess) ResultType() tavolo.Type     { return e.Type }

// Convert bridges a resolved expression into planner form.  It fails on any
// unresolved node; the resolver only bridges trees that passed resolution.
func Convert(e expr.Expr) (Expr, error) {
	switch e := e.(type) {
	case *expr.FieldRef:
		return &FieldAccess{Name: e.Name, Input: e.InputIndex, Field: e.FieldIndex, Type: e.Type}, nil
	case *expr.ResolvedCall:
		args := make([]Expr, len(e.Args))
		for i, arg := range e.Args {
			converted, err := Convert(arg)
			if err != nil {
				return nil, err
			}
			args[i] = converted
		}
		return &Call{Identity: e.Identity, Args: args, Type: e.Type}, nil
	case *expr.ValueLiteral:
		return &Literal{Value: e.Value, Type: e.Type}, nil
	case *expr.TypeLiteral:
		return &TypeValue{Type: e.Type}, nil
	case *expr.WindowRef:
		return &WindowAttribute{Name: e.Name, Type: e.Type}, nil
	case *expr.LocalRef:
		return &LocalAccess{Name: e.Name, Type: e.Type}, nil
	}
	return nil, fmt.Errorf("cannot bridge unresolved expression: %s", e)
}
