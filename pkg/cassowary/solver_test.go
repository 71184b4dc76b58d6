package cassowary

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delta = 1e-6

func TestSolverSimpleEquality(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()

	require.NoError(t, s.AddConstraint(Equals(Var(x), Constant(10), Required)))

	changes := s.FetchChanges()
	require.Len(t, changes, 1)
	assert.Same(t, x, changes[0].Variable)
	assert.InDelta(t, 10, changes[0].Value, delta)

	assert.Empty(t, s.FetchChanges(), "second fetch without mutation must be empty")
}

func TestSolverStrengthOrdering(t *testing.T) {
	x := NewVariable("x")
	y := NewVariable("y")
	s := NewSolver()

	require.NoError(t, s.AddConstraint(Equals(Var(x).Plus(Var(y)), Constant(20), Required)))
	require.NoError(t, s.AddConstraint(Equals(Var(x), Constant(5), Strong)))
	require.NoError(t, s.AddConstraint(Equals(Var(x), Constant(30), Weak)))
	require.NoError(t, s.AddConstraint(GreaterOrEqual(Var(y), Constant(0), Required)))

	assert.InDelta(t, 5, s.Value(x), delta)
	assert.InDelta(t, 15, s.Value(y), delta)
}

func TestSolverWeakYieldsRegardlessOfInsertionOrder(t *testing.T) {
	for _, weakFirst := range []bool{true, false} {
		x := NewVariable("x")
		s := NewSolver()
		weak := Equals(Var(x), Constant(100), Weak)
		strong := Equals(Var(x), Constant(40), Strong)
		first, second := strong, weak
		if weakFirst {
			first, second = weak, strong
		}
		require.NoError(t, s.AddConstraint(first))
		require.NoError(t, s.AddConstraint(second))
		assert.InDelta(t, 40, s.Value(x), delta, "weakFirst=%v", weakFirst)
	}
}

func TestSolverRequiredEqualityConflict(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()

	require.NoError(t, s.AddConstraint(Equals(Var(x), Constant(10), Required)))
	bad := Equals(Var(x), Constant(20), Required)

	err := s.AddConstraint(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsatisfiableConstraint))
	assert.False(t, s.HasConstraint(bad))
	assert.InDelta(t, 10, s.Value(x), delta)
}

func TestSolverRequiredInequalityConflictRollsBack(t *testing.T) {
	x := NewVariable("x")
	y := NewVariable("y")
	s := NewSolver()

	require.NoError(t, s.AddConstraint(GreaterOrEqual(Var(x), Constant(10), Required)))
	require.NoError(t, s.AddConstraint(Equals(Var(y), Var(x).Plus(Constant(1)), Required)))

	bad := LessOrEqual(Var(x), Constant(5), Required)
	err := s.AddConstraint(bad)
	require.ErrorIs(t, err, ErrUnsatisfiableConstraint)
	assert.False(t, s.HasConstraint(bad))

	assert.InDelta(t, 10, s.Value(x), delta)
	assert.InDelta(t, 11, s.Value(y), delta)

	// The solver still accepts compatible constraints afterwards.
	require.NoError(t, s.AddConstraint(Equals(Var(x), Constant(12), Strong)))
	assert.InDelta(t, 12, s.Value(x), delta)
	assert.InDelta(t, 13, s.Value(y), delta)
}

func TestSolverRemoveKeepsRedundantEquality(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()

	first := Equals(Var(x), Constant(13), Required)
	require.NoError(t, s.AddConstraint(first))
	require.NoError(t, s.AddConstraint(Equals(Var(x).Scale(2), Constant(26), Required)))
	require.NoError(t, s.AddConstraint(GreaterOrEqual(Var(x), Constant(0), Required)))

	require.NoError(t, s.RemoveConstraint(first))
	assert.InDelta(t, 13, s.Value(x), delta, "2x == 26 still holds")
}

// TestSolverRequiredAlwaysHold drives the solver through random adds,
// removals and suggestions. Every required constraint is satisfied by a
// fixed point, so none may be rejected and all must hold after each step.
func TestSolverRequiredAlwaysHold(t *testing.T) {
	coeffs := []float64{-3, -2, -1, -0.5, 0.5, 1, 2, 3}
	strengths := []Strength{Weak, Medium, Strong}
	ops := []Operator{LE, EQ, GE}

	for seed := range uint64(300) {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, 0x6c696d6e))
			vars := make([]*Variable, 6)
			point := make(map[*Variable]float64, len(vars))
			for i := range vars {
				vars[i] = NewVariable(string(rune('a' + i)))
				point[vars[i]] = float64(rng.IntN(101) - 50)
			}
			s := NewSolver()
			edits := vars[:2]
			for _, v := range edits {
				require.NoError(t, s.AddEditVariable(v, strengths[rng.IntN(len(strengths))]))
			}

			randomExpr := func() Expression {
				var e Expression
				for _, i := range rng.Perm(len(vars))[:1+rng.IntN(3)] {
					e = e.Plus(Var(vars[i]).Scale(coeffs[rng.IntN(len(coeffs))]))
				}
				return e
			}
			var installed []*Constraint

			for step := range 60 {
				switch p := rng.Float64(); {
				case p < 0.45 || len(installed) == 0:
					e := randomExpr()
					at := e.Value(func(v *Variable) float64 { return point[v] })
					op := ops[rng.IntN(len(ops))]
					var c *Constraint
					if rng.IntN(2) == 0 {
						slack := float64(rng.IntN(11))
						switch op {
						case LE:
							c = NewConstraint(e.Plus(Constant(-at-slack)), LE, Required)
						case GE:
							c = NewConstraint(e.Plus(Constant(-at+slack)), GE, Required)
						default:
							c = NewConstraint(e.Plus(Constant(-at)), EQ, Required)
						}
					} else {
						c = NewConstraint(e.Plus(Constant(float64(rng.IntN(121)-60))), op, strengths[rng.IntN(len(strengths))])
					}
					require.NoError(t, s.AddConstraint(c), "step %d: %s", step, c)
					installed = append(installed, c)
				case p < 0.55:
					for _, c := range installed {
						if c.Strength().IsRequired() && c.Operator() == EQ {
							bad := NewConstraint(c.Expression().Plus(Constant(5)), EQ, Required)
							require.ErrorIs(t, s.AddConstraint(bad), ErrUnsatisfiableConstraint, "step %d: %s", step, bad)
							break
						}
					}
				case p < 0.8:
					i := rng.IntN(len(installed))
					require.NoError(t, s.RemoveConstraint(installed[i]), "step %d", step)
					installed = append(installed[:i], installed[i+1:]...)
				default:
					v := edits[rng.IntN(len(edits))]
					require.NoError(t, s.SuggestValue(v, float64(rng.IntN(161)-80)), "step %d", step)
				}

				for _, c := range installed {
					if c.Strength().IsRequired() {
						require.True(t, c.Satisfied(s.Value), "step %d: %s violated", step, c)
					}
				}
			}
		})
	}
}

func TestSolverDuplicateAndUnknown(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()
	c := Equals(Var(x), Constant(1), Required)

	require.NoError(t, s.AddConstraint(c))
	assert.ErrorIs(t, s.AddConstraint(c), ErrDuplicateConstraint)

	require.NoError(t, s.RemoveConstraint(c))
	assert.ErrorIs(t, s.RemoveConstraint(c), ErrUnknownConstraint)
}

func TestSolverRemoveConstraintRestoresWeaker(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()

	weak := Equals(Var(x), Constant(10), Weak)
	strong := Equals(Var(x), Constant(50), Strong)
	require.NoError(t, s.AddConstraint(weak))
	require.NoError(t, s.AddConstraint(strong))
	assert.InDelta(t, 50, s.Value(x), delta)
	s.FetchChanges()

	require.NoError(t, s.RemoveConstraint(strong))
	assert.InDelta(t, 10, s.Value(x), delta)

	changes := s.FetchChanges()
	require.Len(t, changes, 1)
	assert.InDelta(t, 10, changes[0].Value, delta)
}

func TestSolverEditVariable(t *testing.T) {
	x := NewVariable("x")
	w := NewVariable("w")
	right := NewVariable("right")
	s := NewSolver()

	require.NoError(t, s.AddConstraint(Equals(Var(right), Var(x).Plus(Var(w)), Required)))
	require.NoError(t, s.AddConstraint(Equals(Var(w), Constant(100), Required)))
	require.NoError(t, s.AddConstraint(GreaterOrEqual(Var(x), Constant(0), Required)))
	require.NoError(t, s.AddEditVariable(x, Strong))
	s.FetchChanges()

	require.NoError(t, s.SuggestValue(x, 50))
	assert.InDelta(t, 50, s.Value(x), delta)
	assert.InDelta(t, 150, s.Value(right), delta)

	changes := s.FetchChanges()
	got := map[*Variable]float64{}
	for _, c := range changes {
		got[c.Variable] = c.Value
	}
	assert.InDelta(t, 50, got[x], delta)
	assert.InDelta(t, 150, got[right], delta)
	assert.NotContains(t, got, w, "w did not change")

	// Required x >= 0 overrides the suggestion.
	require.NoError(t, s.SuggestValue(x, -10))
	assert.InDelta(t, 0, s.Value(x), delta)
	assert.InDelta(t, 100, s.Value(right), delta)

	require.NoError(t, s.SuggestValue(x, 75))
	assert.InDelta(t, 75, s.Value(x), delta)
}

func TestSolverEditVariableErrors(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()

	assert.ErrorIs(t, s.AddEditVariable(x, Required), ErrBadRequiredStrength)
	assert.ErrorIs(t, s.SuggestValue(x, 1), ErrUnknownEditVariable)
	assert.ErrorIs(t, s.RemoveEditVariable(x), ErrUnknownEditVariable)

	require.NoError(t, s.AddEditVariable(x, Medium))
	assert.ErrorIs(t, s.AddEditVariable(x, Strong), ErrDuplicateEditVariable)
	assert.True(t, s.HasEditVariable(x))

	str, ok := s.EditStrength(x)
	require.True(t, ok)
	assert.Equal(t, Medium, str)

	require.NoError(t, s.RemoveEditVariable(x))
	assert.False(t, s.HasEditVariable(x))
}

func TestSolverConstraintsExcludeEdits(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()
	a := GreaterOrEqual(Var(x), Constant(0), Required)
	b := LessOrEqual(Var(x), Constant(100), Required)

	require.NoError(t, s.AddConstraint(a))
	require.NoError(t, s.AddEditVariable(x, Strong))
	require.NoError(t, s.AddConstraint(b))

	got := s.Constraints()
	require.Len(t, got, 2)
	assert.Same(t, a, got[0])
	assert.Same(t, b, got[1])
}

func TestSolverForget(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()
	c := Equals(Var(x), Constant(3), Required)
	require.NoError(t, s.AddConstraint(c))

	assert.False(t, s.Forget(x), "x is still referenced")
	require.NoError(t, s.RemoveConstraint(c))
	assert.True(t, s.Forget(x))
	assert.NotContains(t, s.Variables(), x)
	assert.Empty(t, s.FetchChanges())
}

func TestSolverUnderConstrainedIsDeterministic(t *testing.T) {
	solve := func() (float64, float64) {
		a := NewVariable("a")
		b := NewVariable("b")
		s := NewSolver()
		require.NoError(t, s.AddConstraint(Equals(Var(a).Plus(Var(b)), Constant(10), Required)))
		return s.Value(a), s.Value(b)
	}
	a1, b1 := solve()
	a2, b2 := solve()
	assert.InDelta(t, 10, a1+b1, delta)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestSolverReset(t *testing.T) {
	x := NewVariable("x")
	s := NewSolver()
	require.NoError(t, s.AddConstraint(Equals(Var(x), Constant(3), Required)))
	s.Reset()
	assert.Empty(t, s.Constraints())
	assert.Equal(t, 0.0, s.Value(x))
}
