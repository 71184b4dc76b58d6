package layout

import (
	"errors"
	"fmt"

	"github.com/matzehuels/limn/pkg/cassowary"
)

var (
	// ErrConstraintConflict matches every [*ConflictError] with errors.Is.
	ErrConstraintConflict = errors.New("layout: required constraint conflict")

	// ErrUnknownEntity is returned when an entity id or layout has not been
	// registered with the solver.
	ErrUnknownEntity = errors.New("layout: unknown entity")

	// ErrAlreadyRegistered is returned by [Solver.Register] for a layout that
	// is already registered.
	ErrAlreadyRegistered = errors.New("layout: entity already registered")

	// ErrUnownedVariable is returned by [Solver.Snapshot] when an active
	// constraint references a variable no registered entity owns.
	ErrUnownedVariable = errors.New("layout: variable has no registered owner")
)

// ConflictError reports a required constraint the solver refused because it
// contradicts the required constraints already installed. The constraint was
// not installed and the solver state is unchanged.
type ConflictError struct {
	Entity     EntityID
	Name       string
	Constraint *cassowary.Constraint
	// Dump is the constraint pretty-printed with diagnostic names.
	Dump string
	Err  error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("layout: %s (%s): unsatisfiable required constraint: %s", e.Name, e.Entity, e.Dump)
}

// Unwrap exposes both [ErrConstraintConflict] and the engine error.
func (e *ConflictError) Unwrap() []error {
	return []error{ErrConstraintConflict, e.Err}
}
