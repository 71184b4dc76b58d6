package tree

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/limn/pkg/cassowary"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/layout/container"
)

var (
	// ErrUnknownWidget is returned when an id does not name a widget of the
	// tree.
	ErrUnknownWidget = errors.New("unknown widget")

	// ErrAlreadyAttached is returned by [Tree.SetRoot] and [Tree.AddChild]
	// when the widget is already part of the tree.
	ErrAlreadyAttached = errors.New("widget already attached")

	// ErrRootSet is returned by [Tree.SetRoot] when the tree already has a
	// root widget.
	ErrRootSet = errors.New("tree already has a root")

	// ErrContainerSet is returned by [Tree.SetLinear] and [Tree.SetGrid] when
	// the widget already has a container strategy.
	ErrContainerSet = errors.New("widget already has a container")
)

// Rect is the solved bounding box of a widget.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r *Rect) set(k layout.VarKind, v float64) {
	switch k {
	case layout.Left:
		r.Left = v
	case layout.Top:
		r.Top = v
	case layout.Right:
		r.Right = v
	case layout.Bottom:
		r.Bottom = v
	case layout.Width:
		r.Width = v
	case layout.Height:
		r.Height = v
	}
}

// Get returns the value of one side.
func (r Rect) Get(k layout.VarKind) float64 {
	switch k {
	case layout.Left:
		return r.Left
	case layout.Top:
		return r.Top
	case layout.Right:
		return r.Right
	case layout.Bottom:
		return r.Bottom
	case layout.Width:
		return r.Width
	case layout.Height:
		return r.Height
	}
	return 0
}

// Widget is a node of the tree. It wraps a [layout.Layout] and the bounds
// the solver last reported for it.
//
// The zero value is not usable; create widgets with [NewWidget].
type Widget struct {
	layout    *layout.Layout
	parent    layout.EntityID
	children  []layout.EntityID
	container container.Strategy
	bounds    Rect
	hidden    bool
	attached  bool
}

// NewWidget creates a detached widget. Constraints may be added to its
// layout before or after it joins a tree.
func NewWidget(name string) *Widget {
	return &Widget{layout: layout.New(name)}
}

// ID returns the widget's entity id.
func (w *Widget) ID() layout.EntityID { return w.layout.ID() }

// Name returns the widget's name.
func (w *Widget) Name() string { return w.layout.Name() }

// Layout returns the widget's layout node.
func (w *Widget) Layout() *layout.Layout { return w.layout }

// LayoutVars returns the widget's variables, so a widget can be passed
// wherever a [layout.Ref] is expected.
func (w *Widget) LayoutVars() *layout.Vars { return w.layout.Vars() }

// Parent returns the parent id, or zero for the root and detached widgets.
func (w *Widget) Parent() layout.EntityID { return w.parent }

// Children returns the child ids in insertion order.
func (w *Widget) Children() []layout.EntityID { return slices.Clone(w.children) }

// Container returns the widget's container strategy, if any.
func (w *Widget) Container() container.Strategy { return w.container }

// Bounds returns the last solved bounds.
func (w *Widget) Bounds() Rect { return w.bounds }

// Hidden reports whether the widget is hidden.
func (w *Widget) Hidden() bool { return w.hidden }

// Option configures a [Tree].
type Option func(*config)

type config struct {
	logger     *log.Logger
	solverOpts []layout.Option
}

// WithLogger sets the logger of the tree and its solver.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
			c.solverOpts = append(c.solverOpts, layout.WithLogger(l))
		}
	}
}

// WithSolverOptions passes options through to [layout.NewSolver].
func WithSolverOptions(opts ...layout.Option) Option {
	return func(c *config) {
		c.solverOpts = append(c.solverOpts, opts...)
	}
}

// Tree is a widget hierarchy backed by one [layout.Solver]. Widgets live in
// an arena keyed by entity id and refer to their parent by id.
//
// Tree is not safe for concurrent use.
type Tree struct {
	solver  *layout.Solver
	logger  *log.Logger
	widgets map[layout.EntityID]*Widget
	root    layout.EntityID
}

// New creates an empty tree.
func New(opts ...Option) *Tree {
	cfg := config{logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Tree{
		solver:  layout.NewSolver(cfg.solverOpts...),
		logger:  cfg.logger,
		widgets: make(map[layout.EntityID]*Widget),
	}
}

// Solver returns the underlying solver.
func (t *Tree) Solver() *layout.Solver { return t.solver }

// Root returns the root widget, or nil.
func (t *Tree) Root() *Widget { return t.widgets[t.root] }

// Len returns the number of widgets in the tree.
func (t *Tree) Len() int { return len(t.widgets) }

// Widget returns the widget with the given id.
func (t *Tree) Widget(id layout.EntityID) (*Widget, bool) {
	w, ok := t.widgets[id]
	return w, ok
}

// Find returns the first widget named name in pre-order.
func (t *Tree) Find(name string) (*Widget, bool) {
	var found *Widget
	t.Walk(func(w *Widget, _ int) bool {
		if w.Name() == name {
			found = w
			return false
		}
		return true
	})
	return found, found != nil
}

// SetRoot attaches w as the root of the tree.
func (t *Tree) SetRoot(w *Widget) error {
	if t.root != 0 {
		return ErrRootSet
	}
	if w.attached {
		return fmt.Errorf("%w: %s", ErrAlreadyAttached, w.Name())
	}
	err := t.attach(w)
	t.root = w.ID()
	return err
}

// AddChild attaches child under parent. If the parent has a container
// strategy the child is placed by it.
func (t *Tree) AddChild(parent layout.EntityID, child *Widget) error {
	p, ok := t.widgets[parent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, parent)
	}
	if child.attached {
		return fmt.Errorf("%w: %s", ErrAlreadyAttached, child.Name())
	}
	if p.container != nil {
		if err := p.container.AddChild(child.layout); err != nil {
			return err
		}
	}
	err := t.attach(child)
	child.parent = parent
	p.children = append(p.children, child.ID())
	return err
}

// attach registers w. A flush error still leaves w registered and attached.
func (t *Tree) attach(w *Widget) error {
	changes, err := t.solver.Register(w.layout)
	w.attached = true
	t.widgets[w.ID()] = w
	for _, ch := range changes {
		w.bounds.set(ch.Kind, ch.Value)
	}
	return err
}

// SetLinear gives the widget a linear container. Existing children are
// added to it in order.
func (t *Tree) SetLinear(id layout.EntityID, o container.Orientation, padding float64) error {
	w, ok := t.widgets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	return t.setContainer(w, container.NewLinear(w.layout, o, padding))
}

// SetGrid gives the widget a grid container with n columns.
func (t *Tree) SetGrid(id layout.EntityID, n int) error {
	w, ok := t.widgets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	g, err := container.NewGrid(w.layout, n)
	if err != nil {
		return err
	}
	return t.setContainer(w, g)
}

func (t *Tree) setContainer(w *Widget, c container.Strategy) error {
	if w.container != nil {
		return fmt.Errorf("%w: %s", ErrContainerSet, w.Name())
	}
	for _, id := range w.children {
		if err := c.AddChild(t.widgets[id].layout); err != nil {
			return err
		}
	}
	w.container = c
	return nil
}

// Remove detaches the widget and its whole subtree, unregistering every
// entity from the solver. The parent's container is told first so it can
// bridge the gap. Removed widgets cannot be attached again.
func (t *Tree) Remove(id layout.EntityID) error {
	w, ok := t.widgets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	if p, ok := t.widgets[w.parent]; ok {
		if p.container != nil {
			p.container.RemoveChild(id)
		}
		p.children = slices.DeleteFunc(p.children, func(c layout.EntityID) bool { return c == id })
	}
	if t.root == id {
		t.root = 0
	}

	var subtree []*Widget
	var collect func(*Widget)
	collect = func(w *Widget) {
		for _, c := range w.children {
			collect(t.widgets[c])
		}
		subtree = append(subtree, w)
	}
	collect(w)

	for _, sw := range subtree {
		t.solver.Unregister(sw.ID())
		delete(t.widgets, sw.ID())
		sw.parent = 0
	}
	w.children = nil
	t.logger.Debug("removed subtree", "widget", w.Name(), "size", len(subtree))
	return nil
}

// Hide retracts the widget's own constraints until [Tree.Unhide].
func (t *Tree) Hide(id layout.EntityID) error {
	w, ok := t.widgets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	if err := t.solver.Hide(id); err != nil {
		return err
	}
	w.hidden = true
	return nil
}

// Unhide reinstates the constraints retracted by [Tree.Hide].
func (t *Tree) Unhide(id layout.EntityID) error {
	w, ok := t.widgets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	if err := t.solver.Unhide(id); err != nil {
		return err
	}
	w.hidden = false
	return nil
}

// Suggest queues an edit request for one side of a widget. It takes
// effect on the next [Tree.Update].
func (t *Tree) Suggest(id layout.EntityID, k layout.VarKind, value float64, s cassowary.Strength) error {
	w, ok := t.widgets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	w.layout.SetEdit(k, value, s)
	return nil
}

// Update flushes every layout with pending work, applies the change feed
// to widget bounds and returns the widgets whose bounds changed, ordered
// by id. Flush errors are joined; widgets are updated regardless.
func (t *Tree) Update() ([]*Widget, error) {
	var errs []error
	for _, id := range t.ids() {
		w := t.widgets[id]
		if !w.layout.Pending() {
			continue
		}
		if err := t.solver.Flush(w.layout); err != nil {
			errs = append(errs, err)
		}
	}

	dirty := make(map[layout.EntityID]*Widget)
	for _, ch := range t.solver.FetchChanges() {
		w, ok := t.widgets[ch.Entity]
		if !ok {
			continue
		}
		w.bounds.set(ch.Kind, ch.Value)
		dirty[ch.Entity] = w
	}
	out := make([]*Widget, 0, len(dirty))
	for _, id := range slices.Sorted(maps.Keys(dirty)) {
		out = append(out, dirty[id])
	}
	t.logger.Debug("updated tree", "dirty", len(out), "errors", len(errs))
	return out, errors.Join(errs...)
}

// Bounds returns the solved bounds of a widget.
func (t *Tree) Bounds(id layout.EntityID) (Rect, bool) {
	w, ok := t.widgets[id]
	if !ok {
		return Rect{}, false
	}
	return w.bounds, true
}

// Walk visits the tree in pre-order starting at the root. Returning false
// from fn stops the walk.
func (t *Tree) Walk(fn func(w *Widget, depth int) bool) {
	root, ok := t.widgets[t.root]
	if !ok {
		return
	}
	var visit func(*Widget, int) bool
	visit = func(w *Widget, depth int) bool {
		if !fn(w, depth) {
			return false
		}
		for _, c := range w.children {
			if !visit(t.widgets[c], depth+1) {
				return false
			}
		}
		return true
	}
	visit(root, 0)
}

func (t *Tree) ids() []layout.EntityID {
	return slices.Sorted(maps.Keys(t.widgets))
}
