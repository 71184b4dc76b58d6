package layout

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/limn/pkg/cassowary"
	"github.com/matzehuels/limn/pkg/observability"
)

// Change is one entry of the change feed: the new solved value of one
// variable of one entity.
type Change struct {
	Entity EntityID `json:"entity"`
	Kind   VarKind  `json:"kind"`
	Value  float64  `json:"value"`
}

// owner records which entity a variable belongs to. Helper variables handed
// over with [Layout.AddAuxVars] have aux set and are never reported.
type owner struct {
	entity EntityID
	kind   VarKind
	aux    bool
}

// entry is the solver-side state of one registered entity.
type entry struct {
	layout   *Layout
	identity map[*cassowary.Constraint]bool
	// owned holds every constraint flushed through this entity that is
	// active or stashed.
	owned  map[*cassowary.Constraint]struct{}
	hidden bool
	// stash holds constraints retracted by Hide, in installation order.
	stash []*cassowary.Constraint
	aux   []*Vars
}

func (e *entry) vars() []*cassowary.Variable {
	all := e.layout.vars.All()
	out := slices.Clone(all[:])
	for _, vs := range e.aux {
		a := vs.All()
		out = append(out, a[:]...)
	}
	return out
}

// Solver is the layout solver core. It wraps an incremental
// [cassowary.Solver], maps every variable back to the entity that owns it,
// indexes active constraints by variable so entities can be removed
// incrementally, and turns the engine's changed-variable list into a change
// feed keyed by entity.
//
// A Solver is not safe for concurrent use. Hosts that need cross-goroutine
// triggers should marshal them onto the goroutine that owns the solver.
type Solver struct {
	engine *cassowary.Solver
	names  *Names
	logger *log.Logger
	hooks  observability.SolverHooks

	entities map[EntityID]*entry
	owners   map[*cassowary.Variable]owner
	index    map[*cassowary.Variable]map[*cassowary.Constraint]struct{}
	ownerOf  map[*cassowary.Constraint]EntityID
	seqs     map[*cassowary.Constraint]uint64
	nextSeq  uint64

	editStrengths map[*cassowary.Variable]cassowary.Strength
	suggested     map[*cassowary.Variable]float64
	buffered      map[*cassowary.Variable]float64
}

// Option configures a [Solver].
type Option func(*Solver)

// WithLogger sets the logger for diagnostics. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHooks sets the solver hooks. The default is [observability.Solver].
func WithHooks(h observability.SolverHooks) Option {
	return func(s *Solver) {
		if h != nil {
			s.hooks = h
		}
	}
}

// WithNames sets the diagnostic name registry.
func WithNames(n *Names) Option {
	return func(s *Solver) {
		if n != nil {
			s.names = n
		}
	}
}

// NewSolver creates an empty layout solver.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		engine:        cassowary.NewSolver(),
		names:         NewNames(),
		logger:        log.NewWithOptions(io.Discard, log.Options{}),
		hooks:         observability.Solver(),
		entities:      make(map[EntityID]*entry),
		owners:        make(map[*cassowary.Variable]owner),
		index:         make(map[*cassowary.Variable]map[*cassowary.Constraint]struct{}),
		ownerOf:       make(map[*cassowary.Constraint]EntityID),
		seqs:          make(map[*cassowary.Constraint]uint64),
		editStrengths: make(map[*cassowary.Variable]cassowary.Strength),
		suggested:     make(map[*cassowary.Variable]float64),
		buffered:      make(map[*cassowary.Variable]float64),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Names returns the solver's diagnostic name registry.
func (s *Solver) Names() *Names { return s.names }

// Register records l's variables as belonging to its entity and flushes
// whatever l has queued. Values solved for l's variables before it was
// registered are returned so the caller can initialize the entity's bounds
// without waiting for the next [Solver.FetchChanges].
//
// The returned error is [ErrAlreadyRegistered] or the flush error.
func (s *Solver) Register(l *Layout) ([]Change, error) {
	if _, ok := s.entities[l.id]; ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrAlreadyRegistered, l.name, l.id)
	}
	e := &entry{
		layout:   l,
		identity: make(map[*cassowary.Constraint]bool, len(l.identity)),
		owned:    make(map[*cassowary.Constraint]struct{}),
	}
	for _, c := range l.identity {
		e.identity[c] = true
	}
	s.entities[l.id] = e
	s.names.Register(l.vars, l.name)

	var changes []Change
	for i, v := range l.vars.All() {
		s.owners[v] = owner{entity: l.id, kind: Kinds[i]}
		if val, ok := s.buffered[v]; ok {
			changes = append(changes, Change{Entity: l.id, Kind: Kinds[i], Value: val})
			delete(s.buffered, v)
		}
	}
	s.logger.Debug("registered entity", "entity", l.name, "id", l.id, "buffered", len(changes))
	return changes, s.Flush(l)
}

// Unregister retracts every active constraint touching one of the entity's
// variables, removes its edit variables and forgets the variables. It
// reports false if the entity is not registered.
func (s *Solver) Unregister(id EntityID) bool {
	e, ok := s.entities[id]
	if !ok {
		return false
	}
	vars := e.vars()
	dead := make(map[*cassowary.Variable]bool, len(vars))
	for _, v := range vars {
		dead[v] = true
		if s.engine.HasEditVariable(v) {
			if err := s.engine.RemoveEditVariable(v); err != nil {
				s.logger.Error("removing edit variable", "var", s.names.Name(v), "err", err)
			}
		}
		delete(s.editStrengths, v)
		delete(s.suggested, v)
	}

	retracted := 0
	for _, v := range vars {
		for _, c := range s.sorted(s.index[v]) {
			s.retract(c)
			retracted++
		}
	}

	// Stashed constraints of hidden entities must not resurrect these
	// variables on Unhide.
	for _, other := range s.entities {
		other.stash = slices.DeleteFunc(other.stash, func(c *cassowary.Constraint) bool {
			if !touches(c, dead) {
				return false
			}
			delete(other.owned, c)
			delete(s.ownerOf, c)
			delete(s.seqs, c)
			return true
		})
	}
	for c := range e.owned {
		delete(s.ownerOf, c)
		if !s.engine.HasConstraint(c) {
			delete(s.seqs, c)
		}
	}

	for _, v := range vars {
		if !s.engine.Forget(v) {
			s.logger.Warn("variable still referenced after unregister", "var", s.names.Name(v))
		}
		delete(s.owners, v)
		delete(s.buffered, v)
		delete(s.index, v)
		s.names.Forget(v)
	}
	delete(s.entities, id)
	s.logger.Debug("unregistered entity", "entity", e.layout.name, "id", id, "retracted", retracted)
	return true
}

// Flush drains l's pending edit requests, additions and removals into the
// solver, in that order.
//
// Required constraints that conflict with the installed ones are not
// installed; each is reported as a [*ConflictError] and the flush continues.
// All errors are joined into the result.
func (s *Solver) Flush(l *Layout) error {
	e, ok := s.entities[l.id]
	if !ok || e.layout != l {
		return fmt.Errorf("%w: %s (%s)", ErrUnknownEntity, l.name, l.id)
	}
	start := time.Now()

	for _, vs := range l.DrainAuxVars() {
		s.adopt(e, vs)
	}

	var errs []error
	edits := l.DrainEditVars()
	for _, req := range edits {
		if err := s.applyEdit(e, req); err != nil {
			errs = append(errs, err)
		}
	}
	added := l.DrainConstraints()
	for _, c := range added {
		if err := s.install(e, c); err != nil {
			errs = append(errs, err)
		}
	}
	removed := l.DrainRemovedConstraints()
	for _, c := range removed {
		if s.isIdentity(c) {
			s.logger.Warn("ignoring removal of identity constraint", "entity", l.name, "constraint", c.Format(s.names.Name))
			continue
		}
		s.retract(c)
	}

	d := time.Since(start)
	s.hooks.OnFlush(l.name, len(added), len(removed), len(edits), d)
	s.logger.Debug("flushed layout",
		"entity", l.name,
		"edits", len(edits),
		"added", len(added),
		"removed", len(removed),
		"duration", d,
	)
	return errors.Join(errs...)
}

// FetchChanges returns the variables whose solved value changed since the
// last call, ordered by variable creation. Values for variables whose entity
// is not registered yet are buffered and returned by [Solver.Register];
// helper variables are never reported.
func (s *Solver) FetchChanges() []Change {
	raw := s.engine.FetchChanges()
	out := make([]Change, 0, len(raw))
	for _, ch := range raw {
		o, ok := s.owners[ch.Variable]
		switch {
		case !ok:
			s.buffered[ch.Variable] = ch.Value
		case o.aux:
		default:
			out = append(out, Change{Entity: o.entity, Kind: o.kind, Value: ch.Value})
		}
	}
	s.hooks.OnFetchChanges(len(out))
	return out
}

// Hide retracts the constraints the entity owns, except its identity
// constraints, and remembers them for [Solver.Unhide]. Constraints flushed
// through the entity while hidden are stashed as well.
//
// Only constraints flushed through this entity's own layout are retracted.
// Constraints registered on an ancestor that reach into this entity stay
// active.
func (s *Solver) Hide(id EntityID) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if e.hidden {
		return nil
	}
	e.hidden = true
	for _, c := range s.sorted(e.owned) {
		if e.identity[c] || !s.engine.HasConstraint(c) {
			continue
		}
		if err := s.engine.RemoveConstraint(c); err != nil {
			return fmt.Errorf("layout: hide %s: %w", e.layout.name, err)
		}
		s.unindex(c)
		e.stash = append(e.stash, c)
	}
	s.logger.Debug("hid entity", "entity", e.layout.name, "stashed", len(e.stash))
	return nil
}

// Unhide re-adds the constraints stashed by [Solver.Hide]. Conflicts are
// reported as with [Solver.Flush].
func (s *Solver) Unhide(id EntityID) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if !e.hidden {
		return nil
	}
	e.hidden = false
	stash := e.stash
	e.stash = nil

	var errs []error
	for _, c := range stash {
		if err := s.engine.AddConstraint(c); err != nil {
			s.disown(c)
			errs = append(errs, s.wrapAddError(e, c, err))
			continue
		}
		s.indexAdd(c)
	}
	s.logger.Debug("unhid entity", "entity", e.layout.name, "restored", len(stash)-len(errs))
	return errors.Join(errs...)
}

// Hidden reports whether the entity is hidden.
func (s *Solver) Hidden(id EntityID) bool {
	e, ok := s.entities[id]
	return ok && e.hidden
}

// Layout returns the registered layout of an entity.
func (s *Solver) Layout(id EntityID) (*Layout, bool) {
	e, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	return e.layout, true
}

// Entities returns the registered entity ids in ascending order.
func (s *Solver) Entities() []EntityID {
	return slices.Sorted(maps.Keys(s.entities))
}

// HasConstraint reports whether c is active in the solver.
func (s *Solver) HasConstraint(c *cassowary.Constraint) bool {
	return s.engine.HasConstraint(c)
}

// Constraints returns the active constraints in installation order.
func (s *Solver) Constraints() []*cassowary.Constraint {
	return s.engine.Constraints()
}

// ConstraintsOf returns the active constraints touching any variable of the
// entity, in installation order.
func (s *Solver) ConstraintsOf(id EntityID) []*cassowary.Constraint {
	e, ok := s.entities[id]
	if !ok {
		return nil
	}
	set := make(map[*cassowary.Constraint]struct{})
	for _, v := range e.vars() {
		for c := range s.index[v] {
			set[c] = struct{}{}
		}
	}
	return s.sorted(set)
}

// DebugConstraints writes every active constraint, one per line, using the
// diagnostic names.
func (s *Solver) DebugConstraints(w io.Writer) error {
	for _, c := range s.engine.Constraints() {
		if _, err := fmt.Fprintln(w, c.Format(s.names.Name)); err != nil {
			return err
		}
	}
	return nil
}

// DebugVariables writes every tracked variable and its current value.
func (s *Solver) DebugVariables(w io.Writer) error {
	for _, v := range s.engine.Variables() {
		if _, err := fmt.Fprintf(w, "%s = %g\n", s.names.Name(v), s.engine.Value(v)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) adopt(e *entry, vs *Vars) {
	id := e.layout.id
	label := fmt.Sprintf("%s.aux%d", e.layout.name, len(e.aux))
	e.aux = append(e.aux, vs)
	s.names.Register(vs, label)
	for i, v := range vs.All() {
		s.owners[v] = owner{entity: id, kind: Kinds[i], aux: true}
		delete(s.buffered, v)
	}
}

func (s *Solver) applyEdit(e *entry, req EditRequest) error {
	v := req.Var
	strength := req.Strength
	if strength == 0 {
		strength = cassowary.Strong
		if r, ok := s.editStrengths[v]; ok {
			strength = r
		}
	}
	if !req.HasValue {
		s.editStrengths[v] = strength
		return nil
	}
	if math.IsNaN(req.Value) || math.IsInf(req.Value, 0) {
		s.logger.Warn("discarding non-finite suggestion",
			"entity", e.layout.name,
			"var", s.names.Name(v),
			"value", req.Value,
		)
		s.hooks.OnDiscardedSuggestion(e.layout.name)
		return nil
	}
	if !s.engine.HasEditVariable(v) {
		if err := s.engine.AddEditVariable(v, strength); err != nil {
			return fmt.Errorf("layout: %s: edit %s: %w", e.layout.name, s.names.Name(v), err)
		}
	}
	if err := s.engine.SuggestValue(v, req.Value); err != nil {
		return fmt.Errorf("layout: %s: suggest %s: %w", e.layout.name, s.names.Name(v), err)
	}
	s.suggested[v] = req.Value
	return nil
}

func (s *Solver) install(e *entry, c *cassowary.Constraint) error {
	if s.engine.HasConstraint(c) || slices.Contains(e.stash, c) {
		return nil
	}
	s.own(e, c)
	if e.hidden && !e.identity[c] {
		e.stash = append(e.stash, c)
		return nil
	}
	if err := s.engine.AddConstraint(c); err != nil {
		s.disown(c)
		return s.wrapAddError(e, c, err)
	}
	s.indexAdd(c)
	return nil
}

func (s *Solver) wrapAddError(e *entry, c *cassowary.Constraint, err error) error {
	if !errors.Is(err, cassowary.ErrUnsatisfiableConstraint) {
		return fmt.Errorf("layout: %s: %w", e.layout.name, err)
	}
	ce := &ConflictError{
		Entity:     e.layout.id,
		Name:       e.layout.name,
		Constraint: c,
		Dump:       c.Format(s.names.Name),
		Err:        err,
	}
	s.hooks.OnConflict(e.layout.name)
	s.logger.Error("required constraint conflict", "entity", e.layout.name, "constraint", ce.Dump)
	return ce
}

// retract removes c from the solver and from every index. It is a no-op for
// constraints that are not active.
func (s *Solver) retract(c *cassowary.Constraint) {
	s.disown(c)
	if !s.engine.HasConstraint(c) {
		return
	}
	if err := s.engine.RemoveConstraint(c); err != nil {
		s.logger.Error("removing constraint", "constraint", c.Format(s.names.Name), "err", err)
		return
	}
	s.unindex(c)
	s.release(c.Variables())
}

// release forgets variables that belong to no registered entity and no
// longer appear in an active constraint, along with any value buffered for
// them.
func (s *Solver) release(vars []*cassowary.Variable) {
	for _, v := range vars {
		if _, owned := s.owners[v]; owned || len(s.index[v]) > 0 {
			continue
		}
		delete(s.buffered, v)
		s.engine.Forget(v)
	}
}

func (s *Solver) own(e *entry, c *cassowary.Constraint) {
	e.owned[c] = struct{}{}
	s.ownerOf[c] = e.layout.id
	s.seqs[c] = s.nextSeq
	s.nextSeq++
}

func (s *Solver) disown(c *cassowary.Constraint) {
	if id, ok := s.ownerOf[c]; ok {
		if e := s.entities[id]; e != nil {
			delete(e.owned, c)
			if i := slices.Index(e.stash, c); i >= 0 {
				e.stash = slices.Delete(e.stash, i, i+1)
			}
		}
	}
	delete(s.ownerOf, c)
	if !s.engine.HasConstraint(c) {
		delete(s.seqs, c)
	}
}

func (s *Solver) indexAdd(c *cassowary.Constraint) {
	if _, ok := s.seqs[c]; !ok {
		s.seqs[c] = s.nextSeq
		s.nextSeq++
	}
	for _, v := range c.Variables() {
		set, ok := s.index[v]
		if !ok {
			set = make(map[*cassowary.Constraint]struct{})
			s.index[v] = set
		}
		set[c] = struct{}{}
	}
}

func (s *Solver) unindex(c *cassowary.Constraint) {
	for _, v := range c.Variables() {
		if set, ok := s.index[v]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(s.index, v)
			}
		}
	}
	if _, owned := s.ownerOf[c]; !owned {
		delete(s.seqs, c)
	}
}

// sorted returns the constraints of set in installation order.
func (s *Solver) sorted(set map[*cassowary.Constraint]struct{}) []*cassowary.Constraint {
	return slices.SortedFunc(maps.Keys(set), func(a, b *cassowary.Constraint) int {
		return cmp.Compare(s.seqs[a], s.seqs[b])
	})
}

// isIdentity reports whether c is an identity constraint of a registered
// entity.
func (s *Solver) isIdentity(c *cassowary.Constraint) bool {
	e := s.entities[s.ownerOf[c]]
	return e != nil && e.identity[c]
}

func touches(c *cassowary.Constraint, vars map[*cassowary.Variable]bool) bool {
	for _, v := range c.Variables() {
		if vars[v] {
			return true
		}
	}
	return false
}
