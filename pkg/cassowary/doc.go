// Package cassowary implements an incremental linear-arithmetic constraint
// solver based on the Cassowary simplex algorithm.
//
// # Overview
//
// The solver maintains a live system of linear equality and inequality
// constraints over real-valued [Variable] handles. Each [Constraint] carries a
// [Strength]: required constraints must always hold, while weaker constraints
// are satisfied as well as possible in strength order when the system is
// over-constrained.
//
// Constraints can be added and removed at any time. Every mutation updates the
// simplex tableau incrementally: the cost is proportional to the rows it
// touches, not to the size of the whole system.
//
// # Basic Usage
//
//	x := cassowary.NewVariable("x")
//	y := cassowary.NewVariable("y")
//
//	s := cassowary.NewSolver()
//	_ = s.AddConstraint(cassowary.Equals(
//	    cassowary.NewExpression(0, y.Times(1)),
//	    cassowary.NewExpression(10, x.Times(2)),
//	    cassowary.Required))
//
// # Edit Variables
//
// Interactive values (a dragged edge, a resized window) are modeled as edit
// variables. Register a variable with [Solver.AddEditVariable] at a
// non-required strength, then call [Solver.SuggestValue] as often as needed.
// Suggestions are resolved with the dual simplex method, which is much
// cheaper than re-adding constraints.
//
// # Change Feed
//
// [Solver.FetchChanges] returns only the variables whose value differs from
// the value last reported for them. Variables start at zero, so a variable
// that resolves to zero is never reported. Calling FetchChanges twice with no
// intervening mutation returns an empty slice the second time.
//
// # Concurrency
//
// A Solver is not safe for concurrent use. All mutation and change fetching
// must happen on one goroutine, or be serialized by the caller.
package cassowary
