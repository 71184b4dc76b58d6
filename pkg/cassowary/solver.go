package cassowary

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"
)

// Change reports a new solved value for a variable.
type Change struct {
	Variable *Variable
	Value    float64
}

// tag records the tableau symbols introduced for one constraint.
type tag struct {
	marker symbol
	other  symbol
	seq    uint64
}

type editInfo struct {
	tag        tag
	constraint *Constraint
	constant   float64
}

// Solver is an incremental Cassowary constraint solver.
//
// The zero value is not usable - use [NewSolver]. A Solver is not safe for
// concurrent use.
type Solver struct {
	constraints map[*Constraint]tag
	rows        map[symbol]*row
	vars        map[*Variable]symbol
	symbolVars  map[symbol]*Variable
	refs        map[*Variable]int
	edits       map[*Variable]*editInfo
	infeasible  []symbol
	objective   *row
	artificial  *row
	nextID      uint64
	nextSeq     uint64

	reported map[*Variable]float64
	changed  map[*Variable]struct{}
}

// NewSolver creates an empty solver.
func NewSolver() *Solver {
	s := &Solver{}
	s.Reset()
	return s
}

// Reset removes every constraint, edit variable and tracked variable.
func (s *Solver) Reset() {
	s.constraints = make(map[*Constraint]tag)
	s.rows = make(map[symbol]*row)
	s.vars = make(map[*Variable]symbol)
	s.symbolVars = make(map[symbol]*Variable)
	s.refs = make(map[*Variable]int)
	s.edits = make(map[*Variable]*editInfo)
	s.infeasible = nil
	s.objective = newRow(0)
	s.artificial = nil
	s.reported = make(map[*Variable]float64)
	s.changed = make(map[*Variable]struct{})
}

// AddConstraint installs c.
//
// It returns [ErrDuplicateConstraint] if c is already installed and
// [ErrUnsatisfiableConstraint] if c is required and conflicts with the
// required constraints already installed. In both cases the solver state is
// unchanged.
func (s *Solver) AddConstraint(c *Constraint) error {
	if _, ok := s.constraints[c]; ok {
		return ErrDuplicateConstraint
	}

	t := tag{seq: s.nextSeq}
	s.nextSeq++
	r := s.createRow(c, &t)
	subject := chooseSubject(r, t)

	if !subject.valid() && allDummies(r) {
		if !nearZero(r.constant) {
			return fmt.Errorf("%w: %s", ErrUnsatisfiableConstraint, c)
		}
		subject = t.marker
	}

	if !subject.valid() {
		ok, err := s.addWithArtificialVariable(r)
		if err != nil {
			return err
		}
		if !ok {
			if err := s.rollback(t); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", ErrUnsatisfiableConstraint, c)
		}
	} else {
		r.solveFor(subject)
		s.substitute(subject, r)
		s.rows[subject] = r
		s.touch(subject)
	}

	s.constraints[c] = t
	for _, v := range c.Variables() {
		s.refs[v]++
	}
	return s.optimize(s.objective)
}

// RemoveConstraint uninstalls c. It returns [ErrUnknownConstraint] if c is
// not installed.
func (s *Solver) RemoveConstraint(c *Constraint) error {
	t, ok := s.constraints[c]
	if !ok {
		return ErrUnknownConstraint
	}
	delete(s.constraints, c)
	for _, v := range c.Variables() {
		s.refs[v]--
		if s.refs[v] <= 0 {
			delete(s.refs, v)
		}
	}

	s.removeErrorEffects(t.marker, c.strength)
	s.removeErrorEffects(t.other, c.strength)
	if err := s.removeMarker(t.marker, true); err != nil {
		return err
	}
	return s.optimize(s.objective)
}

// HasConstraint reports whether c is installed.
func (s *Solver) HasConstraint(c *Constraint) bool {
	_, ok := s.constraints[c]
	return ok
}

// Constraints returns the installed constraints in installation order. Edit
// variable constraints are not included.
func (s *Solver) Constraints() []*Constraint {
	edit := make(map[*Constraint]bool, len(s.edits))
	for _, e := range s.edits {
		edit[e.constraint] = true
	}
	out := make([]*Constraint, 0, len(s.constraints))
	for c := range s.constraints {
		if !edit[c] {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *Constraint) int {
		return cmp.Compare(s.constraints[a].seq, s.constraints[b].seq)
	})
	return out
}

// AddEditVariable registers v as an edit variable at strength str. The
// strength is clipped; required strength is rejected with
// [ErrBadRequiredStrength].
func (s *Solver) AddEditVariable(v *Variable, str Strength) error {
	if _, ok := s.edits[v]; ok {
		return ErrDuplicateEditVariable
	}
	str = str.Clip()
	if str.IsRequired() {
		return ErrBadRequiredStrength
	}
	c := NewConstraint(Var(v), EQ, str)
	if err := s.AddConstraint(c); err != nil {
		return err
	}
	s.edits[v] = &editInfo{tag: s.constraints[c], constraint: c}
	return nil
}

// RemoveEditVariable unregisters an edit variable.
func (s *Solver) RemoveEditVariable(v *Variable) error {
	e, ok := s.edits[v]
	if !ok {
		return ErrUnknownEditVariable
	}
	if err := s.RemoveConstraint(e.constraint); err != nil {
		return err
	}
	delete(s.edits, v)
	return nil
}

// HasEditVariable reports whether v is an edit variable.
func (s *Solver) HasEditVariable(v *Variable) bool {
	_, ok := s.edits[v]
	return ok
}

// EditStrength returns the strength v was registered with.
func (s *Solver) EditStrength(v *Variable) (Strength, bool) {
	e, ok := s.edits[v]
	if !ok {
		return 0, false
	}
	return e.constraint.strength, true
}

// SuggestValue suggests x as the value of edit variable v. The solver moves
// v as close to x as the stronger constraints allow.
func (s *Solver) SuggestValue(v *Variable, x float64) error {
	e, ok := s.edits[v]
	if !ok {
		return ErrUnknownEditVariable
	}
	delta := x - e.constant
	e.constant = x

	if r, ok := s.rows[e.tag.marker]; ok {
		if r.add(-delta) < 0 {
			s.infeasible = append(s.infeasible, e.tag.marker)
		}
		return s.dualOptimize()
	}
	if r, ok := s.rows[e.tag.other]; ok {
		if r.add(delta) < 0 {
			s.infeasible = append(s.infeasible, e.tag.other)
		}
		return s.dualOptimize()
	}

	var infeasible []symbol
	for sym, r := range s.rows {
		c := r.coefficientFor(e.tag.marker)
		if c == 0 {
			continue
		}
		s.touch(sym)
		if r.add(delta*c) < 0 && sym.kind != externalSymbol {
			infeasible = append(infeasible, sym)
		}
	}
	s.infeasible = append(s.infeasible, sortedSymbols(slices.Values(infeasible))...)
	return s.dualOptimize()
}

// Value returns the current solved value of v. Untracked variables are 0.
func (s *Solver) Value(v *Variable) float64 {
	sym, ok := s.vars[v]
	if !ok {
		return 0
	}
	return s.symbolValue(sym)
}

// Variables returns every tracked variable ordered by id.
func (s *Solver) Variables() []*Variable {
	return slices.SortedFunc(maps.Keys(s.vars), func(a, b *Variable) int {
		return cmp.Compare(a.id, b.id)
	})
}

// Forget stops tracking v. It reports false, and does nothing, while an
// installed constraint still references v.
func (s *Solver) Forget(v *Variable) bool {
	if s.refs[v] > 0 {
		return false
	}
	if sym, ok := s.vars[v]; ok {
		delete(s.symbolVars, sym)
	}
	delete(s.vars, v)
	delete(s.reported, v)
	delete(s.changed, v)
	return true
}

// FetchChanges returns the variables whose value differs from the value last
// reported for them, ordered by variable id.
func (s *Solver) FetchChanges() []Change {
	if len(s.changed) == 0 {
		return nil
	}
	pending := slices.SortedFunc(maps.Keys(s.changed), func(a, b *Variable) int {
		return cmp.Compare(a.id, b.id)
	})
	clear(s.changed)

	var out []Change
	for _, v := range pending {
		sym, ok := s.vars[v]
		if !ok {
			continue
		}
		val := s.symbolValue(sym)
		if math.Abs(val-s.reported[v]) < epsilon {
			continue
		}
		s.reported[v] = val
		out = append(out, Change{Variable: v, Value: val})
	}
	return out
}

func (s *Solver) symbolValue(sym symbol) float64 {
	if r, ok := s.rows[sym]; ok {
		return r.constant
	}
	return 0
}

// touch marks the variable behind an external symbol as possibly changed.
func (s *Solver) touch(sym symbol) {
	if sym.kind != externalSymbol {
		return
	}
	if v, ok := s.symbolVars[sym]; ok {
		s.changed[v] = struct{}{}
	}
}

func (s *Solver) newSymbol(kind symbolKind) symbol {
	s.nextID++
	return symbol{id: s.nextID, kind: kind}
}

func (s *Solver) varSymbol(v *Variable) symbol {
	if sym, ok := s.vars[v]; ok {
		return sym
	}
	sym := s.newSymbol(externalSymbol)
	s.vars[v] = sym
	s.symbolVars[sym] = v
	return sym
}

// createRow converts c into a tableau row expressed in the current
// parametric symbols, adding slack, error and dummy symbols as needed.
func (s *Solver) createRow(c *Constraint, t *tag) *row {
	r := newRow(c.expr.Constant)
	for _, term := range c.expr.Terms {
		if nearZero(term.Coefficient) {
			continue
		}
		sym := s.varSymbol(term.Variable)
		if basic, ok := s.rows[sym]; ok {
			r.insertRow(basic, term.Coefficient)
		} else {
			r.insert(sym, term.Coefficient)
		}
	}

	strength := float64(c.strength)
	switch c.op {
	case LE, GE:
		coeff := 1.0
		if c.op == GE {
			coeff = -1.0
		}
		slack := s.newSymbol(slackSymbol)
		t.marker = slack
		r.insert(slack, coeff)
		if !c.strength.IsRequired() {
			errSym := s.newSymbol(errorSymbol)
			t.other = errSym
			r.insert(errSym, -coeff)
			s.objective.insert(errSym, strength)
		}
	case EQ:
		if !c.strength.IsRequired() {
			plus := s.newSymbol(errorSymbol)
			minus := s.newSymbol(errorSymbol)
			t.marker = plus
			t.other = minus
			r.insert(plus, -1)
			r.insert(minus, 1)
			s.objective.insert(plus, strength)
			s.objective.insert(minus, strength)
		} else {
			dummy := s.newSymbol(dummySymbol)
			t.marker = dummy
			r.insert(dummy, 1)
		}
	}

	if r.constant < 0 {
		r.reverseSign()
	}
	return r
}

// chooseSubject picks the symbol to solve a new row for: any external
// symbol first, then a negative slack or error marker.
func chooseSubject(r *row, t tag) symbol {
	for _, sym := range r.symbols() {
		if sym.kind == externalSymbol {
			return sym
		}
	}
	if t.marker.pivotable() && r.coefficientFor(t.marker) < 0 {
		return t.marker
	}
	if t.other.pivotable() && r.coefficientFor(t.other) < 0 {
		return t.other
	}
	return symbol{}
}

func allDummies(r *row) bool {
	for sym := range r.cells {
		if sym.kind != dummySymbol {
			return false
		}
	}
	return true
}

// addWithArtificialVariable adds r using an artificial variable and reports
// whether a feasible solution exists with the artificial variable at zero.
func (s *Solver) addWithArtificialVariable(r *row) (bool, error) {
	art := s.newSymbol(slackSymbol)
	s.rows[art] = r.clone()
	s.artificial = r.clone()

	if err := s.optimize(s.artificial); err != nil {
		s.artificial = nil
		return false, err
	}
	success := nearZero(s.artificial.constant)
	s.artificial = nil

	if basic, ok := s.rows[art]; ok {
		delete(s.rows, art)
		if len(basic.cells) == 0 {
			return success, nil
		}
		entering := anyPivotableSymbol(basic)
		if !entering.valid() {
			return false, nil
		}
		basic.solveForPair(art, entering)
		s.substitute(entering, basic)
		s.rows[entering] = basic
	}

	for _, r := range s.rows {
		r.remove(art)
	}
	s.objective.remove(art)
	return success, nil
}

// rollback removes what remains of a required constraint whose artificial
// insertion failed, restoring the system to the installed constraints.
func (s *Solver) rollback(t tag) error {
	if err := s.removeMarker(t.marker, false); err != nil {
		return err
	}
	return s.optimize(s.objective)
}

func anyPivotableSymbol(r *row) symbol {
	for _, sym := range r.symbols() {
		if sym.pivotable() {
			return sym
		}
	}
	return symbol{}
}

// substitute replaces sym with r in every row and the objective.
func (s *Solver) substitute(sym symbol, r *row) {
	var infeasible []symbol
	for basic, other := range s.rows {
		if !other.substitute(sym, r) {
			continue
		}
		s.touch(basic)
		if basic.kind != externalSymbol && other.constant < 0 {
			infeasible = append(infeasible, basic)
		}
	}
	s.infeasible = append(s.infeasible, sortedSymbols(slices.Values(infeasible))...)
	s.objective.substitute(sym, r)
	if s.artificial != nil {
		s.artificial.substitute(sym, r)
	}
}

// optimize runs the primal simplex method on objective.
func (s *Solver) optimize(objective *row) error {
	for {
		entering := enteringSymbol(objective)
		if !entering.valid() {
			return nil
		}
		leaving, ok := s.leavingRow(entering)
		if !ok {
			// The objective is bounded below by zero, so an unbounded
			// column is rounding residue.
			if objective.cells[entering] > -residue {
				objective.remove(entering)
				continue
			}
			return fmt.Errorf("%w: objective is unbounded", ErrInternal)
		}
		r := s.rows[leaving]
		delete(s.rows, leaving)
		s.touch(leaving)
		r.solveForPair(leaving, entering)
		s.substitute(entering, r)
		s.rows[entering] = r
		s.touch(entering)
	}
}

// dualOptimize restores feasibility after suggestions with the dual simplex
// method.
func (s *Solver) dualOptimize() error {
	for len(s.infeasible) > 0 {
		leaving := s.infeasible[len(s.infeasible)-1]
		s.infeasible = s.infeasible[:len(s.infeasible)-1]

		r, ok := s.rows[leaving]
		if !ok || nearZero(r.constant) || r.constant >= 0 {
			continue
		}
		entering := s.dualEnteringSymbol(r)
		if !entering.valid() {
			return fmt.Errorf("%w: dual optimize failed", ErrInternal)
		}
		delete(s.rows, leaving)
		s.touch(leaving)
		r.solveForPair(leaving, entering)
		s.substitute(entering, r)
		s.rows[entering] = r
		s.touch(entering)
	}
	return nil
}

func enteringSymbol(objective *row) symbol {
	for _, sym := range objective.symbols() {
		if sym.kind != dummySymbol && objective.cells[sym] < 0 {
			return sym
		}
	}
	return symbol{}
}

func (s *Solver) dualEnteringSymbol(r *row) symbol {
	var entering symbol
	ratio := math.MaxFloat64
	for _, sym := range r.symbols() {
		c := r.cells[sym]
		if c > 0 && sym.kind != dummySymbol {
			if v := s.objective.coefficientFor(sym) / c; v < ratio {
				ratio = v
				entering = sym
			}
		}
	}
	return entering
}

// leavingRow finds the row with the minimum ratio for entering. Ties go to
// the lowest symbol id.
func (s *Solver) leavingRow(entering symbol) (symbol, bool) {
	ratio := math.MaxFloat64
	var found symbol
	for sym, r := range s.rows {
		if sym.kind == externalSymbol {
			continue
		}
		c := r.coefficientFor(entering)
		if c >= 0 {
			continue
		}
		v := -r.constant / c
		if v < ratio || (v == ratio && sym.id < found.id) {
			ratio = v
			found = sym
		}
	}
	return found, found.valid()
}

// markerLeavingRow picks the row to pivot a marker into before its
// constraint is removed. A basic dummy row is taken first: it records a
// redundant required equality, must stay at zero, and pivoting on it leaves
// every value in place.
func (s *Solver) markerLeavingRow(marker symbol) (symbol, bool) {
	r1, r2 := math.MaxFloat64, math.MaxFloat64
	var dummy, first, second, third symbol
	for sym, r := range s.rows {
		c := r.coefficientFor(marker)
		if c == 0 {
			continue
		}
		switch {
		case sym.kind == dummySymbol:
			if !dummy.valid() || sym.id < dummy.id {
				dummy = sym
			}
		case sym.kind == externalSymbol:
			if !third.valid() || sym.id < third.id {
				third = sym
			}
		case c < 0:
			if v := -r.constant / c; v < r1 || (v == r1 && sym.id < first.id) {
				r1 = v
				first = sym
			}
		default:
			if v := r.constant / c; v < r2 || (v == r2 && sym.id < second.id) {
				r2 = v
				second = sym
			}
		}
	}
	switch {
	case dummy.valid():
		return dummy, true
	case first.valid():
		return first, true
	case second.valid():
		return second, true
	case third.valid():
		return third, true
	}
	return symbol{}, false
}

// removeMarker drops the row carrying marker from the tableau. When strict
// is false a marker that no longer appears anywhere is ignored.
func (s *Solver) removeMarker(marker symbol, strict bool) error {
	if _, ok := s.rows[marker]; ok {
		delete(s.rows, marker)
		return nil
	}
	leaving, ok := s.markerLeavingRow(marker)
	if !ok {
		if strict {
			return fmt.Errorf("%w: no leaving row for marker", ErrInternal)
		}
		return nil
	}
	r := s.rows[leaving]
	delete(s.rows, leaving)
	s.touch(leaving)
	r.solveForPair(leaving, marker)
	s.substitute(marker, r)
	return nil
}

func (s *Solver) removeErrorEffects(sym symbol, strength Strength) {
	if sym.kind != errorSymbol {
		return
	}
	if r, ok := s.rows[sym]; ok {
		s.objective.insertRow(r, -float64(strength))
	} else {
		s.objective.insert(sym, -float64(strength))
	}
}
