package cassowary

import "errors"

var (
	// ErrDuplicateConstraint is returned by [Solver.AddConstraint] when the
	// constraint handle is already installed.
	ErrDuplicateConstraint = errors.New("cassowary: duplicate constraint")

	// ErrUnsatisfiableConstraint is returned by [Solver.AddConstraint] when a
	// required constraint conflicts with the required constraints already
	// installed. The solver state is left as it was before the call.
	ErrUnsatisfiableConstraint = errors.New("cassowary: unsatisfiable constraint")

	// ErrUnknownConstraint is returned by [Solver.RemoveConstraint] for a
	// constraint that is not installed.
	ErrUnknownConstraint = errors.New("cassowary: unknown constraint")

	// ErrDuplicateEditVariable is returned by [Solver.AddEditVariable] when
	// the variable is already an edit variable.
	ErrDuplicateEditVariable = errors.New("cassowary: duplicate edit variable")

	// ErrUnknownEditVariable is returned when suggesting a value for, or
	// removing, a variable that is not an edit variable.
	ErrUnknownEditVariable = errors.New("cassowary: unknown edit variable")

	// ErrBadRequiredStrength is returned by [Solver.AddEditVariable] when
	// asked to register an edit variable at required strength.
	ErrBadRequiredStrength = errors.New("cassowary: edit variable cannot be required")

	// ErrInvalidStrength is returned by [ParseStrength] for input that is
	// neither a strength name nor a non-negative number.
	ErrInvalidStrength = errors.New("cassowary: invalid strength")

	// ErrInternal signals a broken tableau invariant. It indicates a bug in
	// the solver, not a caller error.
	ErrInternal = errors.New("cassowary: internal solver error")
)
