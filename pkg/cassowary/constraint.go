package cassowary

import (
	"fmt"
	"math"
)

const tolerance = 1.0e-6

// Operator is the relation of a constraint's expression to zero.
type Operator int

const (
	// LE means expression <= 0.
	LE Operator = iota
	// EQ means expression == 0.
	EQ
	// GE means expression >= 0.
	GE
)

// String returns the mathematical symbol of op.
func (op Operator) String() string {
	switch op {
	case LE:
		return "<="
	case EQ:
		return "=="
	case GE:
		return ">="
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// ParseOperator parses "<=", "==" or ">=".
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "<=":
		return LE, nil
	case "==", "=":
		return EQ, nil
	case ">=":
		return GE, nil
	}
	return 0, fmt.Errorf("cassowary: invalid operator %q", s)
}

// Constraint is an immutable linear relation "expression op 0" with a
// strength. The solver tracks constraints by handle: two handles built from
// the same relation are distinct constraints. Use [Constraint.Equal] for a
// structural comparison.
type Constraint struct {
	expr     Expression
	op       Operator
	strength Strength
}

// NewConstraint creates a constraint "e op 0". The expression is reduced and
// the strength clipped to [0, Required].
func NewConstraint(e Expression, op Operator, s Strength) *Constraint {
	return &Constraint{expr: e.Reduce(), op: op, strength: s.Clip()}
}

// Equals creates the constraint lhs == rhs.
func Equals(lhs, rhs Expression, s Strength) *Constraint {
	return NewConstraint(lhs.Minus(rhs), EQ, s)
}

// LessOrEqual creates the constraint lhs <= rhs.
func LessOrEqual(lhs, rhs Expression, s Strength) *Constraint {
	return NewConstraint(lhs.Minus(rhs), LE, s)
}

// GreaterOrEqual creates the constraint lhs >= rhs.
func GreaterOrEqual(lhs, rhs Expression, s Strength) *Constraint {
	return NewConstraint(lhs.Minus(rhs), GE, s)
}

// Expression returns a copy of the constraint's expression.
func (c *Constraint) Expression() Expression {
	return c.expr.WithConstant(c.expr.Constant)
}

// Operator returns the relation.
func (c *Constraint) Operator() Operator { return c.op }

// Strength returns the strength.
func (c *Constraint) Strength() Strength { return c.strength }

// Variables returns the distinct variables of the expression.
func (c *Constraint) Variables() []*Variable { return c.expr.Variables() }

// WithStrength returns a new constraint with the same relation and strength s.
func (c *Constraint) WithStrength(s Strength) *Constraint {
	return &Constraint{expr: c.Expression(), op: c.op, strength: s.Clip()}
}

// Equal reports whether c and o describe the same relation at the same
// strength. Term order is ignored.
func (c *Constraint) Equal(o *Constraint) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil || c.op != o.op || c.strength != o.strength {
		return false
	}
	if math.Abs(c.expr.Constant-o.expr.Constant) > epsilon || len(c.expr.Terms) != len(o.expr.Terms) {
		return false
	}
	coeffs := make(map[*Variable]float64, len(c.expr.Terms))
	for _, t := range c.expr.Terms {
		coeffs[t.Variable] = t.Coefficient
	}
	for _, t := range o.expr.Terms {
		v, ok := coeffs[t.Variable]
		if !ok || math.Abs(v-t.Coefficient) > epsilon {
			return false
		}
	}
	return true
}

// Satisfied reports whether the relation holds for the given values within
// a small tolerance.
func (c *Constraint) Satisfied(value func(*Variable) float64) bool {
	v := c.expr.Value(value)
	switch c.op {
	case LE:
		return v <= tolerance
	case GE:
		return v >= -tolerance
	default:
		return math.Abs(v) <= tolerance
	}
}

// Format renders the constraint using name to label variables.
func (c *Constraint) Format(name func(*Variable) string) string {
	return fmt.Sprintf("%s %s 0 | %s", c.expr.Format(name), c.op, c.strength)
}

// String renders the constraint with default variable names.
func (c *Constraint) String() string {
	return c.Format(nil)
}
