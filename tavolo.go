// Package tavolo defines the data types and relation model shared by the
// expression resolver and its collaborators.
package tavolo

import (
	"fmt"
	"strings"
)

// Type is the closed set of data types understood by the resolver.  Concrete
// types are either a PrimitiveType or a composite like RowType; consumers
// switch exhaustively over these.
type Type interface {
	fmt.Stringer
	typeNode()
}

type PrimitiveType int

const (
	TypeBool PrimitiveType = iota
	TypeInt64
	TypeFloat64
	TypeDecimal
	TypeString
	TypeTimestamp
	TypeInterval
)

func (PrimitiveType) typeNode() {}

func (t PrimitiveType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeDecimal:
		return "decimal"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "timestamp"
	case TypeInterval:
		return "interval"
	}
	return fmt.Sprintf("unknown type %d", int(t))
}

// RowType is a composite of named, typed fields.  It is the output type of
// multi-output functions and the input to flatten.
type RowType struct {
	Fields []Field
}

func NewRowType(fields ...Field) *RowType {
	return &RowType{Fields: fields}
}

func (*RowType) typeNode() {}

func (t *RowType) String() string {
	var b strings.Builder
	b.WriteString("row(")
	for i, f := range t.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", f.Name, f.Type)
	}
	b.WriteString(")")
	return b.String()
}

// SameType reports whether two types are structurally equal.
func SameType(a, b Type) bool {
	switch a := a.(type) {
	case PrimitiveType:
		b, ok := b.(PrimitiveType)
		return ok && a == b
	case *RowType:
		b, ok := b.(*RowType)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i, f := range a.Fields {
			if f.Name != b.Fields[i].Name || !SameType(f.Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}
