package scene

import (
	"errors"
	"fmt"

	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/layout/container"
	"github.com/matzehuels/limn/pkg/tree"
)

// Build creates a widget tree from the scene, attaches every widget, hides
// the flagged ones, applies the scene's edits and runs one update.
//
// Widgets are attached breadth-first from the root, children in
// declaration order, so container placement follows the document. When a
// required constraint conflicts the tree is still returned, together with
// an error carrying the CONSTRAINT_CONFLICT code.
func (s *Scene) Build(opts ...tree.Option) (*tree.Tree, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	widgets := make(map[string]*tree.Widget, len(s.Widgets))
	children := make(map[string][]*Widget)
	var root *Widget
	for i := range s.Widgets {
		w := &s.Widgets[i]
		widgets[w.Name] = tree.NewWidget(w.Name)
		if w.Parent == "" {
			root = w
		} else {
			children[w.Parent] = append(children[w.Parent], w)
		}
	}
	for i := range s.Widgets {
		w := &s.Widgets[i]
		for _, c := range w.Constraints {
			b, err := c.builder(w, widgets)
			if err != nil {
				return nil, err
			}
			widgets[w.Name].Layout().Add(b)
		}
	}

	t := tree.New(opts...)
	var conflicts []error
	attach := func(w *Widget) error {
		var err error
		if w.Parent == "" {
			err = t.SetRoot(widgets[w.Name])
		} else {
			err = t.AddChild(widgets[w.Parent].ID(), widgets[w.Name])
		}
		if err != nil && !errors.Is(err, layout.ErrConstraintConflict) {
			return err
		}
		if err != nil {
			conflicts = append(conflicts, err)
		}
		return setContainer(t, widgets[w.Name], w)
	}

	queue := []*Widget{root}
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		if err := attach(w); err != nil {
			return nil, fmt.Errorf("scene %s: attach %s: %w", s.Name, w.Name, err)
		}
		queue = append(queue, children[w.Name]...)
	}

	for _, w := range s.Widgets {
		if w.Hidden {
			if err := t.Hide(widgets[w.Name].ID()); err != nil {
				return nil, fmt.Errorf("scene %s: hide %s: %w", s.Name, w.Name, err)
			}
		}
	}
	if _, err := Apply(t, s.Edits); err != nil {
		conflicts = append(conflicts, err)
	}
	if len(conflicts) > 0 {
		return t, conflictError(s.Name, conflicts)
	}
	return t, nil
}

// Apply suggests each edit on the tree and runs one update. It returns the
// widgets whose bounds changed.
func Apply(t *tree.Tree, edits []Edit) ([]*tree.Widget, error) {
	for i, e := range edits {
		w, ok := t.Find(e.Widget)
		if !ok {
			return nil, apperr.New(apperr.ErrCodeNotFound, "edit %d: unknown widget %q", i, e.Widget)
		}
		k, err := e.resolve()
		if err != nil {
			return nil, apperr.Wrap(apperr.GetCode(err), err, "edit %d", i)
		}
		st, _ := parseStrength(e.Strength)
		if err := t.Suggest(w.ID(), k, e.Value, st); err != nil {
			return nil, err
		}
	}
	return t.Update()
}

func setContainer(t *tree.Tree, tw *tree.Widget, w *Widget) error {
	switch w.Layout {
	case "":
		return nil
	case layoutGrid:
		return t.SetGrid(tw.ID(), w.Columns)
	}
	o, err := container.ParseOrientation(w.Layout)
	if err != nil {
		return err
	}
	return t.SetLinear(tw.ID(), o, w.Spacing)
}

func (c Constraint) builder(w *Widget, widgets map[string]*tree.Widget) (layout.Builder, error) {
	k, ok := lookupKind(c.Kind)
	if !ok {
		return layout.Builder{}, apperr.New(apperr.ErrCodeInvalidScene, "unknown constraint kind %q", c.Kind)
	}
	var b layout.Builder
	if k.target {
		target := c.Target
		if target == "" {
			target = w.Parent
		}
		b = k.rel(widgets[target])
	} else {
		b = k.fixed(c.Args)
	}
	if c.Padding != 0 {
		b = b.Padding(c.Padding)
	}
	st, err := parseStrength(c.Strength)
	if err != nil {
		return layout.Builder{}, err
	}
	if st > 0 {
		b = b.Strength(st)
	}
	return b, nil
}

func conflictError(name string, errs []error) error {
	return apperr.Wrap(apperr.ErrCodeConstraintConflict, errors.Join(errs...), "scene %s has conflicting constraints", name)
}
