package expr

import (
	"fmt"
	"strings"
)

// String renderings are used in error messages and test failures, not as a
// serialization format.

func (e *ColumnRef) String() string {
	if e.Relation != "" {
		return e.Relation + "." + e.Name
	}
	return e.Name
}

func (e *Star) String() string {
	if e.Relation != "" {
		return e.Relation + ".*"
	}
	return "*"
}

func (e *CallByName) String() string {
	return renderCall(e.Name, e.Args)
}

func (e *TableRef) String() string { return e.Name }

func (e *UnresolvedCall) String() string {
	return renderCall(e.Identity.String(), e.Args)
}

func (e *FieldRef) String() string { return e.Name }

func (e *ResolvedCall) String() string {
	return renderCall(e.Identity.String(), e.Args)
}

func (e *ValueLiteral) String() string {
	if s, ok := e.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", e.Value)
}

func (e *TypeLiteral) String() string { return e.Type.String() }

func (e *WindowRef) String() string { return e.Name }

func (e *LocalRef) String() string { return e.Name }

func renderCall(name string, args []Expr) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s", arg)
	}
	b.WriteByte(')')
	return b.String()
}
