package cassowary

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

type symbolKind uint8

const (
	invalidSymbol symbolKind = iota
	externalSymbol
	slackSymbol
	errorSymbol
	dummySymbol
)

// symbol is a tableau column. The zero value is the invalid symbol.
type symbol struct {
	id   uint64
	kind symbolKind
}

func (s symbol) valid() bool { return s.kind != invalidSymbol }

// pivotable reports whether s may be chosen as a pivot outside of the
// external variables.
func (s symbol) pivotable() bool {
	return s.kind == slackSymbol || s.kind == errorSymbol
}

// row is one tableau row: basic = constant + sum(cells).
type row struct {
	cells    map[symbol]float64
	constant float64
}

func newRow(constant float64) *row {
	return &row{cells: make(map[symbol]float64), constant: constant}
}

func (r *row) clone() *row {
	return &row{cells: maps.Clone(r.cells), constant: r.constant}
}

// add adds v to the constant and returns the new constant.
func (r *row) add(v float64) float64 {
	r.constant += v
	return r.constant
}

// insert adds coeff*s to the row, dropping the cell if it cancels out.
func (r *row) insert(s symbol, coeff float64) {
	c := r.cells[s] + coeff
	if nearZero(c) {
		delete(r.cells, s)
		return
	}
	r.cells[s] = c
}

// insertRow adds coeff*o to the row.
func (r *row) insertRow(o *row, coeff float64) {
	r.constant += o.constant * coeff
	for s, c := range o.cells {
		r.insert(s, c*coeff)
	}
}

func (r *row) remove(s symbol) {
	delete(r.cells, s)
}

func (r *row) reverseSign() {
	r.constant = -r.constant
	for s, c := range r.cells {
		r.cells[s] = -c
	}
}

// solveFor rewrites the row so that s is its basic symbol. The row must
// contain s.
func (r *row) solveFor(s symbol) {
	coeff := -1.0 / r.cells[s]
	delete(r.cells, s)
	r.constant *= coeff
	for k, c := range r.cells {
		r.cells[k] = c * coeff
	}
}

// solveForPair rewrites "lhs = row" into "rhs = ...".
func (r *row) solveForPair(lhs, rhs symbol) {
	r.insert(lhs, -1)
	r.solveFor(rhs)
}

func (r *row) coefficientFor(s symbol) float64 {
	return r.cells[s]
}

// substitute replaces s with o wherever s appears. It reports whether the
// row changed.
func (r *row) substitute(s symbol, o *row) bool {
	c, ok := r.cells[s]
	if !ok {
		return false
	}
	delete(r.cells, s)
	r.insertRow(o, c)
	return true
}

// symbols returns the row's symbols in id order so that pivot selection is
// deterministic.
func (r *row) symbols() []symbol {
	return sortedSymbols(maps.Keys(r.cells))
}

func sortedSymbols(seq iter.Seq[symbol]) []symbol {
	return slices.SortedFunc(seq, func(a, b symbol) int { return cmp.Compare(a.id, b.id) })
}
