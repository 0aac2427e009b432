package resolver

import (
	"github.com/tavolo/tavolo/expr"
)

// verifyResolved enforces the pipeline's terminal invariant: every reachable
// node of a resolved tree is a resolved variant.  Resolved calls are checked
// post-order so a resolved call with an unresolved argument is reported.  A
// failure here is a rule-engine defect, not a user error.
func verifyResolved(e expr.Expr) (expr.ResolvedExpr, error) {
	if call, ok := e.(*expr.ResolvedCall); ok {
		for _, arg := range call.Args {
			if _, err := verifyResolved(arg); err != nil {
				return nil, err
			}
		}
		return call, nil
	}
	if resolved, ok := e.(expr.ResolvedExpr); ok {
		return resolved, nil
	}
	return nil, systemf("all expressions should have been resolved at this stage, unexpected expression: %s", e)
}
