package resolver

import (
	"fmt"

	"github.com/tavolo/tavolo/expr"
	"go.uber.org/zap"
)

// Rule is one step of the resolution pipeline: a pure transformation from an
// ordered expression list to an ordered expression list.  A rule may change
// the list's length but must preserve the relative order of outputs derived
// from earlier inputs ahead of those derived from later ones.  Each rule
// consumes the entire output of the previous rule.
type Rule interface {
	Transform(exprs []expr.Expr, ctx Context) ([]expr.Expr, error)
}

// ExpandingRules is the subset of the default pipeline responsible for
// arity-changing expansion.  It runs wherever shape expansion is needed
// without committing to full resolution, e.g. before deriving a window's
// time-field type.
func ExpandingRules() []Rule {
	return []Rule{
		lookupCallByNameRule{},
		flattenStarRule{},
		expandColumnFunctionsRule{},
	}
}

// AllRules is the default full pipeline.  The order is significant: field
// resolution must run after all structural expansion so expanded nodes are
// themselves subject to field lookup, and call-argument resolution runs last
// so it sees fully shaped, field-bound call trees.
func AllRules() []Rule {
	return append(ExpandingRules(),
		overWindowsRule{},
		fieldResolveRule{},
		flattenCallRule{},
		qualifyBuiltInsRule{},
		resolveCallsByArgumentsRule{},
	)
}

func (r *Resolver) runRules(rules []Rule, exprs []expr.Expr) ([]expr.Expr, error) {
	ctx := &resolverContext{r: r}
	for _, rule := range rules {
		out, err := rule.Transform(exprs, ctx)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("applied resolver rule",
			zap.String("rule", fmt.Sprintf("%T", rule)),
			zap.Int("in", len(exprs)),
			zap.Int("out", len(out)))
		exprs = out
	}
	return exprs, nil
}
