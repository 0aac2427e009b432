// Package function defines function identities and definitions for the
// expression resolver along with the built-in function catalog.
package function

import (
	"errors"
	"fmt"

	"github.com/tavolo/tavolo"
)

// Identity names a function.  Built-in functions resolve to the system
// catalog; an identity with empty catalog and database is unqualified and is
// filled in by the qualification rule during resolution.
type Identity struct {
	Catalog  string
	Database string
	Name     string
}

func UnqualifiedIdentity(name string) Identity {
	return Identity{Name: name}
}

func BuiltInIdentity(name string) Identity {
	return Identity{Catalog: "system", Database: "builtin", Name: name}
}

func (i Identity) IsQualified() bool {
	return i.Catalog != "" && i.Database != ""
}

func (i Identity) String() string {
	if !i.IsQualified() {
		return i.Name
	}
	return fmt.Sprintf("%s.%s.%s", i.Catalog, i.Database, i.Name)
}

// Definition carries a function's name, its argument signature check, and its
// output-type inference.  Definitions are immutable; the resolver compares
// them by pointer.
type Definition struct {
	name       string
	aggregate  bool
	params     []tavolo.Type
	validate   func(args []tavolo.Type) error
	returnType func(args []tavolo.Type) (tavolo.Type, error)
}

func NewDefinition(
	name string,
	aggregate bool,
	validate func(args []tavolo.Type) error,
	returnType func(args []tavolo.Type) (tavolo.Type, error),
) *Definition {
	return &Definition{
		name:       name,
		aggregate:  aggregate,
		validate:   validate,
		returnType: returnType,
	}
}

// NewFixedDefinition declares a function with a fixed parameter signature
// and a fixed return type.  The resolver inserts implicit widening casts for
// arguments that do not match the declared parameters exactly.
func NewFixedDefinition(name string, aggregate bool, params []tavolo.Type, ret tavolo.Type) *Definition {
	return &Definition{
		name:       name,
		aggregate:  aggregate,
		params:     params,
		returnType: returnFixed(ret),
	}
}

func (d *Definition) Name() string { return d.name }

// FixedParams returns the declared parameter types, or nil for definitions
// that validate their arguments structurally.
func (d *Definition) FixedParams() []tavolo.Type { return d.params }

func (d *Definition) IsAggregate() bool { return d.aggregate }

// Validate checks the argument types against the definition's signature.
func (d *Definition) Validate(args []tavolo.Type) error {
	if d.validate == nil {
		return nil
	}
	return d.validate(args)
}

// ReturnType infers the output type for the given argument types.
func (d *Definition) ReturnType(args []tavolo.Type) (tavolo.Type, error) {
	if d.returnType == nil {
		return nil, fmt.Errorf("%q: no return type inference", d.name)
	}
	return d.returnType(args)
}

// Built-in definitions.  Structural functions (Columns, ColumnsExcept,
// Flatten) are expanded by resolver rules before call resolution and must
// never reach signature validation.
var (
	As            = NewDefinition("as", false, validateAs, returnFirstArg)
	Cast          = NewDefinition("cast", false, validateCast, returnSecondArg)
	Over          = NewDefinition("over", false, validateOver, returnFirstArg)
	Columns       = NewDefinition("columns", false, nil, returnStructural("columns"))
	ColumnsExcept = NewDefinition("columnsExcept", false, nil, returnStructural("columnsExcept"))
	Flatten       = NewDefinition("flatten", false, validateFlatten, returnStructural("flatten"))
	Get           = NewDefinition("get", false, validateGet, returnStructural("get"))
	Sum           = NewDefinition("sum", true, validateNumeric1, returnFirstArg)
	Count         = NewDefinition("count", true, validateArity(1), returnFixed(tavolo.TypeInt64))
	Avg           = NewDefinition("avg", true, validateNumeric1, returnAvg)
	Min           = NewDefinition("min", true, validateArity(1), returnFirstArg)
	Max           = NewDefinition("max", true, validateArity(1), returnFirstArg)
	Concat        = NewDefinition("concat", false, validateStrings, returnFixed(tavolo.TypeString))
	Upper         = NewDefinition("upper", false, validateString1, returnFixed(tavolo.TypeString))
	Lower         = NewDefinition("lower", false, validateString1, returnFixed(tavolo.TypeString))
	Abs           = NewDefinition("abs", false, validateNumeric1, returnFirstArg)
)

func builtIns() []*Definition {
	return []*Definition{
		As, Cast, Over, Columns, ColumnsExcept, Flatten, Get,
		Sum, Count, Avg, Min, Max, Concat, Upper, Lower, Abs,
	}
}

// IsNumeric reports whether t supports arithmetic.
func IsNumeric(t tavolo.Type) bool {
	switch t {
	case tavolo.TypeInt64, tavolo.TypeFloat64, tavolo.TypeDecimal:
		return true
	}
	return false
}

// ImplicitCastable reports whether a value of type from may be implicitly
// widened to type to.
func ImplicitCastable(from, to tavolo.Type) bool {
	if from == tavolo.TypeInt64 {
		return to == tavolo.TypeFloat64 || to == tavolo.TypeDecimal
	}
	return from == tavolo.TypeFloat64 && to == tavolo.TypeDecimal
}

func validateArity(n int) func(args []tavolo.Type) error {
	return func(args []tavolo.Type) error {
		if len(args) != n {
			return fmt.Errorf("expected %d argument(s) but called with %d", n, len(args))
		}
		return nil
	}
}

func validateAs(args []tavolo.Type) error {
	if len(args) != 2 {
		return fmt.Errorf("expected 2 arguments but called with %d", len(args))
	}
	if args[1] != tavolo.TypeString {
		return errors.New("alias must be a string literal")
	}
	return nil
}

func validateCast(args []tavolo.Type) error {
	if len(args) != 2 {
		return fmt.Errorf("expected 2 arguments but called with %d", len(args))
	}
	return nil
}

func validateOver(args []tavolo.Type) error {
	if len(args) < 3 {
		return fmt.Errorf("expected at least 3 arguments but called with %d", len(args))
	}
	return nil
}

func validateFlatten(args []tavolo.Type) error {
	if len(args) != 1 {
		return fmt.Errorf("expected 1 argument but called with %d", len(args))
	}
	if _, ok := args[0].(*tavolo.RowType); !ok {
		return fmt.Errorf("flatten requires a row-typed argument, got %s", args[0])
	}
	return nil
}

func validateGet(args []tavolo.Type) error {
	if len(args) != 2 {
		return fmt.Errorf("expected 2 arguments but called with %d", len(args))
	}
	if _, ok := args[0].(*tavolo.RowType); !ok {
		return fmt.Errorf("get requires a row-typed first argument, got %s", args[0])
	}
	if args[1] != tavolo.TypeInt64 {
		return fmt.Errorf("get requires an int64 index, got %s", args[1])
	}
	return nil
}

func validateNumeric1(args []tavolo.Type) error {
	if len(args) != 1 {
		return fmt.Errorf("expected 1 argument but called with %d", len(args))
	}
	if !IsNumeric(args[0]) {
		return fmt.Errorf("expected a numeric argument, got %s", args[0])
	}
	return nil
}

func validateString1(args []tavolo.Type) error {
	if len(args) != 1 {
		return fmt.Errorf("expected 1 argument but called with %d", len(args))
	}
	if args[0] != tavolo.TypeString {
		return fmt.Errorf("expected a string argument, got %s", args[0])
	}
	return nil
}

func validateStrings(args []tavolo.Type) error {
	if len(args) == 0 {
		return errors.New("expected at least 1 argument")
	}
	for _, t := range args {
		if t != tavolo.TypeString {
			return fmt.Errorf("expected string arguments, got %s", t)
		}
	}
	return nil
}

func returnFirstArg(args []tavolo.Type) (tavolo.Type, error) {
	if len(args) == 0 {
		return nil, errors.New("missing argument for return type inference")
	}
	return args[0], nil
}

func returnSecondArg(args []tavolo.Type) (tavolo.Type, error) {
	if len(args) < 2 {
		return nil, errors.New("missing argument for return type inference")
	}
	return args[1], nil
}

func returnFixed(t tavolo.Type) func(args []tavolo.Type) (tavolo.Type, error) {
	return func([]tavolo.Type) (tavolo.Type, error) {
		return t, nil
	}
}

func returnAvg(args []tavolo.Type) (tavolo.Type, error) {
	if len(args) == 1 && args[0] == tavolo.TypeDecimal {
		return tavolo.TypeDecimal, nil
	}
	return tavolo.TypeFloat64, nil
}

func returnStructural(name string) func(args []tavolo.Type) (tavolo.Type, error) {
	return func([]tavolo.Type) (tavolo.Type, error) {
		return nil, fmt.Errorf("%q must be expanded before call resolution", name)
	}
}
