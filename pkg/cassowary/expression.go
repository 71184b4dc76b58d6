package cassowary

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
)

var variableIDs atomic.Uint64

// Variable is an opaque handle for one scalar unknown. Handles are compared
// by identity; the solved value lives in the [Solver], not in the handle.
type Variable struct {
	id   uint64
	name string
}

// NewVariable creates a variable with a process-unique id. The name is only
// used for diagnostics.
func NewVariable(name string) *Variable {
	return &Variable{id: variableIDs.Add(1), name: name}
}

// ID returns the process-unique id of v.
func (v *Variable) ID() uint64 { return v.id }

// Name returns the diagnostic name given at creation.
func (v *Variable) Name() string { return v.name }

// String returns the name, or "v<id>" for unnamed variables.
func (v *Variable) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.name != "" {
		return v.name
	}
	return "v" + strconv.FormatUint(v.id, 10)
}

// Times returns the term c*v.
func (v *Variable) Times(c float64) Term {
	return Term{Variable: v, Coefficient: c}
}

// Term is a coefficient applied to a variable.
type Term struct {
	Variable    *Variable
	Coefficient float64
}

// Expression is a weighted sum of variables plus a constant.
type Expression struct {
	Terms    []Term
	Constant float64
}

// NewExpression builds an expression from a constant and terms.
func NewExpression(constant float64, terms ...Term) Expression {
	return Expression{Terms: slices.Clone(terms), Constant: constant}
}

// Var returns the expression 1*v.
func Var(v *Variable) Expression {
	return Expression{Terms: []Term{{Variable: v, Coefficient: 1}}}
}

// Constant returns an expression with no terms.
func Constant(c float64) Expression {
	return Expression{Constant: c}
}

// Plus returns e + o.
func (e Expression) Plus(o Expression) Expression {
	terms := make([]Term, 0, len(e.Terms)+len(o.Terms))
	terms = append(terms, e.Terms...)
	terms = append(terms, o.Terms...)
	return Expression{Terms: terms, Constant: e.Constant + o.Constant}
}

// Minus returns e - o.
func (e Expression) Minus(o Expression) Expression {
	return e.Plus(o.Scale(-1))
}

// Scale returns c*e.
func (e Expression) Scale(c float64) Expression {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = Term{Variable: t.Variable, Coefficient: t.Coefficient * c}
	}
	return Expression{Terms: terms, Constant: e.Constant * c}
}

// WithConstant returns a copy of e whose constant term is c. The variables
// and coefficients are unchanged.
func (e Expression) WithConstant(c float64) Expression {
	return Expression{Terms: slices.Clone(e.Terms), Constant: c}
}

// Reduce merges duplicate variables and drops zero coefficients. Terms are
// kept in order of first appearance.
func (e Expression) Reduce() Expression {
	idx := make(map[*Variable]int, len(e.Terms))
	out := make([]Term, 0, len(e.Terms))
	for _, t := range e.Terms {
		if i, ok := idx[t.Variable]; ok {
			out[i].Coefficient += t.Coefficient
			continue
		}
		idx[t.Variable] = len(out)
		out = append(out, t)
	}
	out = slices.DeleteFunc(out, func(t Term) bool { return nearZero(t.Coefficient) })
	return Expression{Terms: out, Constant: e.Constant}
}

// Variables returns the distinct variables of e in order of first appearance.
func (e Expression) Variables() []*Variable {
	seen := make(map[*Variable]bool, len(e.Terms))
	vars := make([]*Variable, 0, len(e.Terms))
	for _, t := range e.Terms {
		if !seen[t.Variable] {
			seen[t.Variable] = true
			vars = append(vars, t.Variable)
		}
	}
	return vars
}

// Substitute returns e with every variable found in m replaced by its image.
// Coefficients are preserved.
func (e Expression) Substitute(m map[*Variable]*Variable) Expression {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		v := t.Variable
		if r, ok := m[v]; ok {
			v = r
		}
		terms[i] = Term{Variable: v, Coefficient: t.Coefficient}
	}
	return Expression{Terms: terms, Constant: e.Constant}
}

// Value evaluates e with the given variable values.
func (e Expression) Value(value func(*Variable) float64) float64 {
	sum := e.Constant
	for _, t := range e.Terms {
		sum += t.Coefficient * value(t.Variable)
	}
	return sum
}

// Format renders e using name to label variables. A nil name falls back to
// [Variable.String].
func (e Expression) Format(name func(*Variable) string) string {
	if name == nil {
		name = (*Variable).String
	}
	var b strings.Builder
	for i, t := range e.Terms {
		c := t.Coefficient
		switch {
		case i == 0 && c < 0:
			b.WriteString("-")
		case i > 0 && c < 0:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		if a := math.Abs(c); a != 1 {
			b.WriteString(strconv.FormatFloat(a, 'g', -1, 64))
			b.WriteString("*")
		}
		b.WriteString(name(t.Variable))
	}
	switch {
	case len(e.Terms) == 0:
		b.WriteString(strconv.FormatFloat(e.Constant, 'g', -1, 64))
	case e.Constant < 0:
		b.WriteString(" - ")
		b.WriteString(strconv.FormatFloat(-e.Constant, 'g', -1, 64))
	case e.Constant > 0:
		b.WriteString(" + ")
		b.WriteString(strconv.FormatFloat(e.Constant, 'g', -1, 64))
	}
	return b.String()
}

// String renders e with default variable names.
func (e Expression) String() string {
	return e.Format(nil)
}

const (
	epsilon = 1.0e-8
	// residue bounds the rounding error left in objective coefficients.
	residue = 1.0e-6
)

func nearZero(v float64) bool {
	return math.Abs(v) < epsilon
}
