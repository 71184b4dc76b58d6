// Package layout is the constraint layout core: per-entity variable sets, a
// builder vocabulary for geometric relations, per-entity staging nodes and a
// solver that turns it all into an incremental change feed.
//
// # Overview
//
// Every layout participant (a widget, a container, a helper row) is an
// entity with six variables: left, top, right, bottom, width and height. Two
// required identity constraints tie them together for the entity's lifetime:
//
//	right - left == width
//	bottom - top == height
//
// Width and height are not required to be non-negative. A required
// non-negativity constraint snaps over-constrained widgets to zero, so it is
// left to callers (see [MinWidth], [MinHeight]).
//
// # Builders
//
// A [Builder] describes constraints against a placeholder target and is
// resolved against the real target when attached with [Layout.Add]:
//
//	child := layout.New("child")
//	child.Add(
//	    layout.AlignLeft(parent).Padding(8),
//	    layout.Below(header).Padding(4),
//	    layout.FixedWidth(120),
//	    layout.Shrink(),
//	)
//
// Padding replaces the constant term of the relation and keeps the sign
// convention of each builder: [AlignRight] with padding 10 means
// other.right - self.right == 10. Structural builders default to required
// strength; [Shrink] and its variants default to weak.
//
// # Layout Nodes
//
// A [Layout] queues constraint additions, removals and edit requests. Nothing
// reaches the solver until [Solver.Flush] drains the queues, exactly once per
// flush. Removing a constraint that is still queued cancels it.
//
// Interactive values use edit requests:
//
//	l.SetEdit(layout.Left, 50, cassowary.Strong)
//	l.Edit(layout.Width).Set(200).Strength(cassowary.Medium).Submit()
//
// # Solver
//
// [Solver] owns the underlying [cassowary.Solver]. [Solver.Register] attaches
// a layout, [Solver.Unregister] retracts every constraint touching the
// entity, and [Solver.Hide]/[Solver.Unhide] temporarily retract the
// constraints the entity owns. [Solver.FetchChanges] returns only the values
// that changed since the previous call:
//
//	s := layout.NewSolver(layout.WithLogger(logger))
//	if _, err := s.Register(root); err != nil {
//	    return err
//	}
//	for _, ch := range s.FetchChanges() {
//	    apply(ch.Entity, ch.Kind, ch.Value)
//	}
//
// Values solved for variables of an entity that is not registered yet are
// buffered and returned by Register. Non-finite suggestions are logged and
// dropped. A required constraint that contradicts the installed ones is
// refused with a [*ConflictError]; the solver state is left unchanged.
//
// # Snapshots
//
// [Solver.Snapshot] captures entities, constraints and edit variables in a
// serializable form and [Restore] rebuilds an equivalent solver from it.
//
// # Concurrency
//
// Nothing in this package is safe for concurrent use. A solver and the
// layouts registered with it belong to one goroutine.
package layout
