package layout

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/limn/pkg/cassowary"
)

// Snapshot is a serializable description of a solver's entities, active and
// stashed constraints, and edit variables. Restoring it into a fresh solver
// reproduces the solved values.
type Snapshot struct {
	Entities    []EntitySnapshot     `json:"entities"`
	Constraints []ConstraintSnapshot `json:"constraints"`
	Edits       []EditSnapshot       `json:"edits,omitempty"`
}

// EntitySnapshot describes one registered entity.
type EntitySnapshot struct {
	ID     EntityID `json:"id"`
	Name   string   `json:"name"`
	Hidden bool     `json:"hidden,omitempty"`
	// Aux is the number of helper variable sets the entity owns.
	Aux int `json:"aux,omitempty"`
}

// VarRef names a variable by owner. Aux is 0 for the entity's own variables
// and n for its n-th helper set.
type VarRef struct {
	Entity EntityID `json:"entity"`
	Aux    int      `json:"aux,omitempty"`
	Kind   VarKind  `json:"kind"`
}

// TermSnapshot is one weighted variable of a constraint.
type TermSnapshot struct {
	Var         VarRef  `json:"var"`
	Coefficient float64 `json:"coefficient"`
}

// ConstraintSnapshot is one constraint, "terms + constant op 0".
type ConstraintSnapshot struct {
	Owner    EntityID       `json:"owner"`
	Terms    []TermSnapshot `json:"terms"`
	Constant float64        `json:"constant"`
	Op       string         `json:"op"`
	Strength float64        `json:"strength"`
}

// EditSnapshot is one edit variable and its last suggested value.
type EditSnapshot struct {
	Var      VarRef  `json:"var"`
	Strength float64 `json:"strength"`
	Value    float64 `json:"value"`
	HasValue bool    `json:"has_value"`
}

// Snapshot captures the solver state. Identity constraints are implied by
// each entity and not listed. It fails with [ErrUnownedVariable] if an
// active constraint references a variable of an unregistered entity.
func (s *Solver) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{}
	for _, id := range s.Entities() {
		e := s.entities[id]
		snap.Entities = append(snap.Entities, EntitySnapshot{
			ID:     id,
			Name:   e.layout.name,
			Hidden: e.hidden,
			Aux:    len(e.aux),
		})
	}

	all := s.engine.Constraints()
	for _, e := range s.entities {
		all = append(all, e.stash...)
	}
	slices.SortStableFunc(all, func(a, b *cassowary.Constraint) int {
		return cmp.Compare(s.seqs[a], s.seqs[b])
	})

	for _, c := range all {
		if s.isIdentity(c) {
			continue
		}
		cs, err := s.snapshotConstraint(c)
		if err != nil {
			return nil, err
		}
		snap.Constraints = append(snap.Constraints, cs)
	}

	for _, v := range s.engine.Variables() {
		str, ok := s.engine.EditStrength(v)
		if !ok {
			continue
		}
		ref, err := s.ref(v)
		if err != nil {
			return nil, err
		}
		val, has := s.suggested[v]
		snap.Edits = append(snap.Edits, EditSnapshot{Var: ref, Strength: float64(str), Value: val, HasValue: has})
	}
	return snap, nil
}

func (s *Solver) isIdentity(c *cassowary.Constraint) bool {
	id, ok := s.ownerOf[c]
	if !ok {
		return false
	}
	e := s.entities[id]
	return e != nil && e.identity[c]
}

func (s *Solver) snapshotConstraint(c *cassowary.Constraint) (ConstraintSnapshot, error) {
	expr := c.Expression()
	cs := ConstraintSnapshot{
		Constant: expr.Constant,
		Op:       c.Operator().String(),
		Strength: float64(c.Strength()),
	}
	for _, t := range expr.Terms {
		ref, err := s.ref(t.Variable)
		if err != nil {
			return cs, err
		}
		cs.Terms = append(cs.Terms, TermSnapshot{Var: ref, Coefficient: t.Coefficient})
	}
	if id, ok := s.ownerOf[c]; ok && s.entities[id] != nil {
		cs.Owner = id
	} else if len(cs.Terms) > 0 {
		cs.Owner = cs.Terms[0].Var.Entity
	}
	return cs, nil
}

func (s *Solver) ref(v *cassowary.Variable) (VarRef, error) {
	o, ok := s.owners[v]
	if !ok {
		return VarRef{}, fmt.Errorf("%w: %s", ErrUnownedVariable, s.names.Name(v))
	}
	ref := VarRef{Entity: o.entity, Kind: o.kind}
	if o.aux {
		for i, vs := range s.entities[o.entity].aux {
			if vs.Var(o.kind) == v {
				ref.Aux = i + 1
				break
			}
		}
	}
	return ref, nil
}

// Restored is the result of [Restore].
type Restored struct {
	Solver *Solver
	// Layouts maps snapshot entity ids to the recreated layouts. Recreated
	// entities get fresh ids.
	Layouts map[EntityID]*Layout
}

// Restore rebuilds a solver from a snapshot. Every entity is registered
// before any constraint is flushed, so no values are buffered; read the
// solved values with [Solver.FetchChanges].
func Restore(snap *Snapshot, opts ...Option) (*Restored, error) {
	r := &Restored{Solver: NewSolver(opts...), Layouts: make(map[EntityID]*Layout, len(snap.Entities))}
	aux := make(map[EntityID][]*Vars)
	var order []*Layout

	for _, es := range snap.Entities {
		if _, dup := r.Layouts[es.ID]; dup {
			return nil, fmt.Errorf("layout: restore: duplicate entity %s", es.ID)
		}
		l := New(es.Name)
		for i := range es.Aux {
			vs := NewVars(fmt.Sprintf("%s.aux%d", es.Name, i))
			aux[es.ID] = append(aux[es.ID], vs)
			l.AddAuxVars(vs)
		}
		r.Layouts[es.ID] = l
		order = append(order, l)
	}

	var errs []error
	for _, l := range order {
		if _, err := r.Solver.Register(l); err != nil {
			errs = append(errs, err)
		}
	}

	resolve := func(ref VarRef) (*cassowary.Variable, error) {
		l, ok := r.Layouts[ref.Entity]
		if !ok {
			return nil, fmt.Errorf("layout: restore: unknown entity %s", ref.Entity)
		}
		if ref.Aux == 0 {
			return l.vars.Var(ref.Kind), nil
		}
		sets := aux[ref.Entity]
		if ref.Aux < 0 || ref.Aux > len(sets) {
			return nil, fmt.Errorf("layout: restore: %s has no helper set %d", ref.Entity, ref.Aux)
		}
		return sets[ref.Aux-1].Var(ref.Kind), nil
	}

	for _, cs := range snap.Constraints {
		l, ok := r.Layouts[cs.Owner]
		if !ok {
			return nil, fmt.Errorf("layout: restore: unknown owner %s", cs.Owner)
		}
		op, err := cassowary.ParseOperator(cs.Op)
		if err != nil {
			return nil, fmt.Errorf("layout: restore: %w", err)
		}
		expr := cassowary.Constant(cs.Constant)
		for _, t := range cs.Terms {
			x, err := resolve(t.Var)
			if err != nil {
				return nil, err
			}
			expr.Terms = append(expr.Terms, x.Times(t.Coefficient))
		}
		l.AddConstraints(cassowary.NewConstraint(expr, op, cassowary.Strength(cs.Strength)))
	}

	for _, ed := range snap.Edits {
		x, err := resolve(ed.Var)
		if err != nil {
			return nil, err
		}
		l := r.Layouts[ed.Var.Entity]
		l.edits = append(l.edits, EditRequest{
			Var:      x,
			Value:    ed.Value,
			HasValue: ed.HasValue,
			Strength: cassowary.Strength(ed.Strength),
		})
	}

	for _, l := range order {
		if err := r.Solver.Flush(l); err != nil {
			errs = append(errs, err)
		}
	}
	for _, es := range snap.Entities {
		if es.Hidden {
			if err := r.Solver.Hide(r.Layouts[es.ID].id); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return r, errors.Join(errs...)
}
