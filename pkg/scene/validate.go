package scene

import (
	"github.com/matzehuels/limn/pkg/cassowary"
	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/layout/container"
)

// Layout names accepted in [Widget.Layout] besides the orientations.
const layoutGrid = "grid"

// Validate checks the scene's structure: unique names, exactly one root,
// resolvable parents without cycles, known layouts, constraint kinds and
// targets, and edits that name existing widgets and sides.
func (s *Scene) Validate() error {
	if len(s.Widgets) == 0 {
		return apperr.New(apperr.ErrCodeInvalidScene, "scene has no widgets")
	}
	byName := make(map[string]*Widget, len(s.Widgets))
	var roots []string
	for i := range s.Widgets {
		w := &s.Widgets[i]
		if err := apperr.ValidateName(w.Name); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidScene, err, "widget %d", i)
		}
		if _, dup := byName[w.Name]; dup {
			return apperr.New(apperr.ErrCodeInvalidScene, "duplicate widget %q", w.Name)
		}
		byName[w.Name] = w
		if w.Parent == "" {
			roots = append(roots, w.Name)
		}
	}
	switch len(roots) {
	case 0:
		return apperr.New(apperr.ErrCodeInvalidScene, "scene has no root widget")
	case 1:
	default:
		return apperr.New(apperr.ErrCodeInvalidScene, "scene has %d root widgets %q, want one", len(roots), roots)
	}

	for i := range s.Widgets {
		w := &s.Widgets[i]
		if w.Parent != "" {
			if _, ok := byName[w.Parent]; !ok {
				return apperr.New(apperr.ErrCodeInvalidScene, "widget %q has unknown parent %q", w.Name, w.Parent)
			}
		}
		if err := checkLayout(w); err != nil {
			return err
		}
		for j, c := range w.Constraints {
			if err := checkConstraint(w, c, byName); err != nil {
				return apperr.Wrap(apperr.GetCode(err), err, "widget %q constraint %d", w.Name, j)
			}
		}
	}
	if err := checkCycles(s.Widgets, byName); err != nil {
		return err
	}

	for i, e := range s.Edits {
		if _, ok := byName[e.Widget]; !ok {
			return apperr.New(apperr.ErrCodeInvalidScene, "edit %d: unknown widget %q", i, e.Widget)
		}
		if _, err := e.resolve(); err != nil {
			return apperr.Wrap(apperr.GetCode(err), err, "edit %d", i)
		}
	}
	return nil
}

func checkLayout(w *Widget) error {
	if err := apperr.ValidateFinite("spacing", w.Spacing); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidScene, err, "widget %q", w.Name)
	}
	switch w.Layout {
	case "":
		return nil
	case layoutGrid:
		if w.Columns <= 0 {
			return apperr.New(apperr.ErrCodeInvalidScene, "widget %q: grid needs columns > 0, got %d", w.Name, w.Columns)
		}
		return nil
	}
	if _, err := container.ParseOrientation(w.Layout); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidScene, err, "widget %q", w.Name)
	}
	return nil
}

func checkConstraint(w *Widget, c Constraint, byName map[string]*Widget) error {
	k, ok := lookupKind(c.Kind)
	if !ok {
		return apperr.New(apperr.ErrCodeInvalidScene, "unknown constraint kind %q", c.Kind)
	}
	if len(c.Args) != k.args {
		return apperr.New(apperr.ErrCodeInvalidScene, "%s takes %d args, got %d", c.Kind, k.args, len(c.Args))
	}
	for _, a := range c.Args {
		if err := apperr.ValidateFinite(c.Kind, a); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidScene, err, "args")
		}
	}
	if err := apperr.ValidateFinite("padding", c.Padding); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidScene, err, "padding")
	}
	switch {
	case !k.target && c.Target != "":
		return apperr.New(apperr.ErrCodeInvalidScene, "%s takes no target", c.Kind)
	case k.target && c.Target == "" && w.Parent == "":
		return apperr.New(apperr.ErrCodeInvalidScene, "%s needs a target on the root widget", c.Kind)
	case k.target && c.Target != "":
		if _, ok := byName[c.Target]; !ok {
			return apperr.New(apperr.ErrCodeInvalidScene, "unknown target %q", c.Target)
		}
	}
	_, err := parseStrength(c.Strength)
	return err
}

func checkCycles(ws []Widget, byName map[string]*Widget) error {
	for _, w := range ws {
		seen := map[string]bool{w.Name: true}
		for p := w.Parent; p != ""; p = byName[p].Parent {
			if seen[p] {
				return apperr.New(apperr.ErrCodeInvalidScene, "widget %q is part of a parent cycle", w.Name)
			}
			seen[p] = true
		}
	}
	return nil
}

// parseStrength parses an optional strength. Zero means "builder default".
func parseStrength(s string) (cassowary.Strength, error) {
	if s == "" {
		return 0, nil
	}
	st, err := cassowary.ParseStrength(s)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrCodeInvalidStrength, err, "strength")
	}
	if st <= 0 {
		return 0, apperr.New(apperr.ErrCodeInvalidStrength, "strength %q must be positive", s)
	}
	return st, nil
}

func (e Edit) resolve() (layout.VarKind, error) {
	k, err := layout.ParseVarKind(e.Side)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrCodeInvalidScene, err, "side")
	}
	if err := apperr.ValidateFinite("value", e.Value); err != nil {
		return 0, apperr.Wrap(apperr.ErrCodeInvalidScene, err, "value")
	}
	st, err := parseStrength(e.Strength)
	if err != nil {
		return 0, err
	}
	if st.IsRequired() {
		return 0, apperr.New(apperr.ErrCodeInvalidStrength, "edit strength cannot be required")
	}
	return k, nil
}
