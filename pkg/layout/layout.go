package layout

import (
	"slices"

	"github.com/matzehuels/limn/pkg/cassowary"
)

// EditRequest asks the solver to treat Var as an edit variable and, when
// HasValue is set, to suggest Value for it. A zero Strength means "the
// strength remembered for this variable, or Strong".
type EditRequest struct {
	Var      *cassowary.Variable
	Value    float64
	HasValue bool
	Strength cassowary.Strength
}

// Layout is the per-entity staging area between builder calls and the
// [Solver]. It owns the entity's [Vars] and queues constraint additions,
// removals and edit requests until the solver flushes it.
//
// None of the queueing methods fail; validation happens at flush time. A
// Layout is not safe for concurrent use.
type Layout struct {
	id       EntityID
	name     string
	vars     *Vars
	identity []*cassowary.Constraint

	added   []*cassowary.Constraint
	removed []*cassowary.Constraint
	edits   []EditRequest
	aux     []*Vars
}

// New creates a layout node with a fresh entity id. The two identity
// constraints are queued immediately. The name is only used for diagnostics.
func New(name string) *Layout {
	id := NewEntityID()
	if name == "" {
		name = "entity" + id.String()
	}
	vars := NewVars(name)
	l := &Layout{id: id, name: name, vars: vars, identity: vars.Identity()}
	l.added = append(l.added, l.identity...)
	return l
}

// ID returns the entity id.
func (l *Layout) ID() EntityID { return l.id }

// Name returns the diagnostic name.
func (l *Layout) Name() string { return l.name }

// Vars returns the entity's variable set.
func (l *Layout) Vars() *Vars { return l.vars }

// LayoutVars implements [Ref].
func (l *Layout) LayoutVars() *Vars { return l.vars }

// Identity returns the entity's two identity constraints.
func (l *Layout) Identity() []*cassowary.Constraint { return slices.Clone(l.identity) }

// Add resolves each builder against this layout and queues the resulting
// constraints. The handles are returned so callers can remove them later.
func (l *Layout) Add(bs ...Builder) []*cassowary.Constraint {
	var out []*cassowary.Constraint
	for _, b := range bs {
		out = append(out, b.Resolve(l.vars)...)
	}
	l.added = append(l.added, out...)
	return out
}

// AddConstraints queues already-built constraints.
func (l *Layout) AddConstraints(cs ...*cassowary.Constraint) {
	l.added = append(l.added, cs...)
}

// RemoveConstraint cancels a pending add of c, or queues its removal if it
// was already flushed. The entity's identity constraints are never removed.
func (l *Layout) RemoveConstraint(c *cassowary.Constraint) {
	if slices.Contains(l.identity, c) {
		return
	}
	if i := slices.Index(l.added, c); i >= 0 {
		l.added = slices.Delete(l.added, i, i+1)
		return
	}
	l.removed = append(l.removed, c)
}

// RemoveConstraints calls [Layout.RemoveConstraint] for each constraint.
func (l *Layout) RemoveConstraints(cs ...*cassowary.Constraint) {
	for _, c := range cs {
		l.RemoveConstraint(c)
	}
}

// SetEdit queues a suggestion of value for the variable of kind k.
func (l *Layout) SetEdit(k VarKind, value float64, strength cassowary.Strength) {
	l.edits = append(l.edits, EditRequest{Var: l.vars.Var(k), Value: value, HasValue: true, Strength: strength})
}

// Edit starts an edit request for the variable of kind k. Nothing is queued
// until [Edit.Submit] is called.
//
//	l.Edit(layout.Left).Set(50).Strength(cassowary.Strong).Submit()
func (l *Layout) Edit(k VarKind) *Edit {
	return &Edit{l: l, req: EditRequest{Var: l.vars.Var(k)}}
}

// AddAuxVars hands ownership of a helper variable set to this entity. The
// solver never reports helper variables in the change feed and drops them
// when the entity is unregistered.
func (l *Layout) AddAuxVars(vs ...*Vars) {
	l.aux = append(l.aux, vs...)
}

// Pending reports whether anything is queued for the next flush.
func (l *Layout) Pending() bool {
	return len(l.added) > 0 || len(l.removed) > 0 || len(l.edits) > 0 || len(l.aux) > 0
}

// DrainConstraints takes and clears the pending additions.
func (l *Layout) DrainConstraints() []*cassowary.Constraint {
	out := l.added
	l.added = nil
	return out
}

// DrainRemovedConstraints takes and clears the pending removals.
func (l *Layout) DrainRemovedConstraints() []*cassowary.Constraint {
	out := l.removed
	l.removed = nil
	return out
}

// DrainEditVars takes and clears the pending edit requests.
func (l *Layout) DrainEditVars() []EditRequest {
	out := l.edits
	l.edits = nil
	return out
}

// DrainAuxVars takes and clears the helper variable sets handed over since
// the last flush.
func (l *Layout) DrainAuxVars() []*Vars {
	out := l.aux
	l.aux = nil
	return out
}

// Edit is an explicit edit request builder returned by [Layout.Edit].
type Edit struct {
	l   *Layout
	req EditRequest
}

// Set sets the suggested value.
func (e *Edit) Set(value float64) *Edit {
	e.req.Value = value
	e.req.HasValue = true
	return e
}

// Strength sets the edit strength.
func (e *Edit) Strength(s cassowary.Strength) *Edit {
	e.req.Strength = s
	return e
}

// Submit queues the request on the layout. Calling it again queues it again.
func (e *Edit) Submit() {
	e.l.edits = append(e.l.edits, e.req)
}
