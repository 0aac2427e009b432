package resolver

import (
	"github.com/tavolo/tavolo/expr"
	"github.com/tavolo/tavolo/planner"
)

// Declarative window specs, as produced by the table API before resolution.

// GroupWindow is a time-based grouping declaration attached to an
// aggregation: tumbling, sliding, or session.
type GroupWindow interface {
	Alias() expr.Expr
	TimeField() expr.Expr
	groupWindow()
}

type TumbleWindow struct {
	alias     expr.Expr
	timeField expr.Expr
	size      expr.Expr
}

func NewTumbleWindow(alias, timeField, size expr.Expr) *TumbleWindow {
	return &TumbleWindow{alias: alias, timeField: timeField, size: size}
}

func (w *TumbleWindow) Alias() expr.Expr     { return w.alias }
func (w *TumbleWindow) TimeField() expr.Expr { return w.timeField }
func (w *TumbleWindow) Size() expr.Expr      { return w.size }
func (*TumbleWindow) groupWindow()           {}

type SlideWindow struct {
	alias     expr.Expr
	timeField expr.Expr
	size      expr.Expr
	slide     expr.Expr
}

func NewSlideWindow(alias, timeField, size, slide expr.Expr) *SlideWindow {
	return &SlideWindow{alias: alias, timeField: timeField, size: size, slide: slide}
}

func (w *SlideWindow) Alias() expr.Expr     { return w.alias }
func (w *SlideWindow) TimeField() expr.Expr { return w.timeField }
func (w *SlideWindow) Size() expr.Expr      { return w.size }
func (w *SlideWindow) Slide() expr.Expr     { return w.slide }
func (*SlideWindow) groupWindow()           {}

type SessionWindow struct {
	alias     expr.Expr
	timeField expr.Expr
	gap       expr.Expr
}

func NewSessionWindow(alias, timeField, gap expr.Expr) *SessionWindow {
	return &SessionWindow{alias: alias, timeField: timeField, gap: gap}
}

func (w *SessionWindow) Alias() expr.Expr     { return w.alias }
func (w *SessionWindow) TimeField() expr.Expr { return w.timeField }
func (w *SessionWindow) Gap() expr.Expr       { return w.gap }
func (*SessionWindow) groupWindow()           {}

// OverWindow is a windowing declaration attached to a single windowed
// function call.  Following is optional.
type OverWindow struct {
	Alias        expr.Expr
	Partitioning []expr.Expr
	Order        expr.Expr
	Preceding    expr.Expr
	Following    expr.Expr
}

// The resolved, planner-ready window forms.

// LogicalWindow is a resolved group window: the alias binding, the bridged
// time field, and the kind-specific boundaries.  Built once per declaration
// and immutable afterward.
type LogicalWindow interface {
	Alias() *expr.WindowRef
	TimeField() planner.Expr
	logicalWindow()
}

type TumblingGroupWindow struct {
	alias     *expr.WindowRef
	timeField planner.Expr
	size      planner.Expr
}

func (w *TumblingGroupWindow) Alias() *expr.WindowRef  { return w.alias }
func (w *TumblingGroupWindow) TimeField() planner.Expr { return w.timeField }
func (w *TumblingGroupWindow) Size() planner.Expr      { return w.size }
func (*TumblingGroupWindow) logicalWindow()            {}

type SlidingGroupWindow struct {
	alias     *expr.WindowRef
	timeField planner.Expr
	size      planner.Expr
	slide     planner.Expr
}

func (w *SlidingGroupWindow) Alias() *expr.WindowRef  { return w.alias }
func (w *SlidingGroupWindow) TimeField() planner.Expr { return w.timeField }
func (w *SlidingGroupWindow) Size() planner.Expr      { return w.size }
func (w *SlidingGroupWindow) Slide() planner.Expr     { return w.slide }
func (*SlidingGroupWindow) logicalWindow()            {}

type SessionGroupWindow struct {
	alias     *expr.WindowRef
	timeField planner.Expr
	gap       planner.Expr
}

func (w *SessionGroupWindow) Alias() *expr.WindowRef  { return w.alias }
func (w *SessionGroupWindow) TimeField() planner.Expr { return w.timeField }
func (w *SessionGroupWindow) Gap() planner.Expr       { return w.gap }
func (*SessionGroupWindow) logicalWindow()            {}

// LogicalOverWindow is a resolved over window, indexed under its alias name
// at resolver construction time and joined with over() calls by the over
// windows rule.
type LogicalOverWindow struct {
	Alias        expr.Expr
	Partitioning []expr.Expr
	Order        expr.Expr
	Preceding    expr.Expr
	Following    expr.Expr
}

// WindowLocalReference materializes a resolved group window's alias as a
// local pseudo-field.  Callers register it on the resolver they build for
// the windowed aggregation so projections can reference the alias.
func WindowLocalReference(w LogicalWindow) *expr.LocalRef {
	alias := w.Alias()
	return expr.NewLocalRef(alias.Name, alias.Type)
}

// ResolveGroupWindow resolves a declarative group window into its logical
// form.  The alias must still be symbolic; the time field must resolve to
// exactly one expression.  Boundaries go through field resolution only, not
// the full pipeline.
func (r *Resolver) ResolveGroupWindow(window GroupWindow) (LogicalWindow, error) {
	ref, ok := window.Alias().(*expr.ColumnRef)
	if !ok || ref.Relation != "" {
		return nil, validationf("group window alias must be an unresolved field reference")
	}
	timeFields, err := r.prepareExpressions([]expr.Expr{window.TimeField()})
	if err != nil {
		return nil, err
	}
	if len(timeFields) != 1 {
		return nil, validationf("group window only supports a single time field column")
	}
	timeField, err := planner.Convert(timeFields[0])
	if err != nil {
		return nil, err
	}
	alias := expr.NewWindowRef(ref.Name, timeField.ResultType())
	switch window := window.(type) {
	case *TumbleWindow:
		size, err := r.resolveSingleBridged(window.Size())
		if err != nil {
			return nil, err
		}
		return &TumblingGroupWindow{alias: alias, timeField: timeField, size: size}, nil
	case *SlideWindow:
		size, err := r.resolveSingleBridged(window.Size())
		if err != nil {
			return nil, err
		}
		slide, err := r.resolveSingleBridged(window.Slide())
		if err != nil {
			return nil, err
		}
		return &SlidingGroupWindow{alias: alias, timeField: timeField, size: size, slide: slide}, nil
	case *SessionWindow:
		gap, err := r.resolveSingleBridged(window.Gap())
		if err != nil {
			return nil, err
		}
		return &SessionGroupWindow{alias: alias, timeField: timeField, gap: gap}, nil
	}
	return nil, systemf("unknown group window type %T", window)
}

// resolveOverWindow resolves one declared over window eagerly at build time.
// Partitioning goes through expansion plus field resolution because
// partition keys may be multi-valued; order and bounds are scalars and get
// field resolution only.
func (r *Resolver) resolveOverWindow(window OverWindow) (*LogicalOverWindow, error) {
	partitioning, err := r.prepareExpressions(window.Partitioning)
	if err != nil {
		return nil, err
	}
	order, err := r.resolveSingle(window.Order)
	if err != nil {
		return nil, err
	}
	preceding, err := r.resolveSingle(window.Preceding)
	if err != nil {
		return nil, err
	}
	var following expr.Expr
	if window.Following != nil {
		following, err = r.resolveSingle(window.Following)
		if err != nil {
			return nil, err
		}
	}
	return &LogicalOverWindow{
		Alias:        window.Alias,
		Partitioning: partitioning,
		Order:        order,
		Preceding:    preceding,
		Following:    following,
	}, nil
}
