package layout

import (
	"github.com/matzehuels/limn/pkg/cassowary"
)

// self is the placeholder variable set builders are described against. It is
// replaced by the concrete target's variables when a builder is resolved.
var self = NewVars("self")

// part is one relation of a builder: expr op 0, or expr op padding when
// paddable.
type part struct {
	expr     cassowary.Expression
	op       cassowary.Operator
	paddable bool
}

// Builder is an immutable description of one or more constraints relative to
// a not-yet-known target. Attach it with [Layout.Add], or turn it into
// concrete constraints with [Builder.Resolve].
//
// Padding replaces the constant term of each paddable relation; it never
// changes which variables or coefficients participate. Builders with no
// paddable relation (sizes, centering, aspect ratio) ignore it.
type Builder struct {
	name     string
	parts    []part
	strength cassowary.Strength
	padding  float64
}

func newBuilder(name string, strength cassowary.Strength, parts ...part) Builder {
	return Builder{name: name, parts: parts, strength: strength}
}

// Name returns the builder's name, e.g. "align_left".
func (b Builder) Name() string { return b.name }

// Padding returns a copy of b with padding p.
func (b Builder) Padding(p float64) Builder {
	b.padding = p
	return b
}

// Strength returns a copy of b with strength s.
func (b Builder) Strength(s cassowary.Strength) Builder {
	b.strength = s
	return b
}

// Resolve substitutes target's variables for the placeholder and returns the
// resulting constraints. Each call returns new constraint handles.
func (b Builder) Resolve(target *Vars) []*cassowary.Constraint {
	m := make(map[*cassowary.Variable]*cassowary.Variable, 6)
	for i, v := range self.All() {
		m[v] = target.All()[i]
	}
	out := make([]*cassowary.Constraint, 0, len(b.parts))
	for _, p := range b.parts {
		e := p.expr
		if p.paddable {
			e = e.WithConstant(-b.padding)
		}
		out = append(out, cassowary.NewConstraint(e.Substitute(m), p.op, b.strength))
	}
	return out
}

// Combine merges builders into one. Padding and strength set on the result
// apply to every part.
func Combine(name string, bs ...Builder) Builder {
	var parts []part
	strength := cassowary.Required
	for i, b := range bs {
		if i == 0 {
			strength = b.strength
		}
		parts = append(parts, b.parts...)
	}
	return newBuilder(name, strength, parts...)
}

func ex(x *cassowary.Variable) cassowary.Expression { return cassowary.Var(x) }

func diff(a, b *cassowary.Variable) cassowary.Expression { return ex(a).Minus(ex(b)) }

func fixed(expr cassowary.Expression, op cassowary.Operator) part {
	return part{expr: expr, op: op}
}

func padded(expr cassowary.Expression, op cassowary.Operator) part {
	return part{expr: expr, op: op, paddable: true}
}

// =============================================================================
// Sizing
// =============================================================================

// FixedWidth fixes the width: width == w.
func FixedWidth(w float64) Builder {
	return newBuilder("width", cassowary.Required, fixed(ex(self.Width).Minus(cassowary.Constant(w)), cassowary.EQ))
}

// FixedHeight fixes the height: height == h.
func FixedHeight(h float64) Builder {
	return newBuilder("height", cassowary.Required, fixed(ex(self.Height).Minus(cassowary.Constant(h)), cassowary.EQ))
}

// MinWidth requires width >= w.
func MinWidth(w float64) Builder {
	return newBuilder("min_width", cassowary.Required, fixed(ex(self.Width).Minus(cassowary.Constant(w)), cassowary.GE))
}

// MinHeight requires height >= h.
func MinHeight(h float64) Builder {
	return newBuilder("min_height", cassowary.Required, fixed(ex(self.Height).Minus(cassowary.Constant(h)), cassowary.GE))
}

// Size fixes both extents.
func Size(w, h float64) Builder {
	return Combine("size", FixedWidth(w), FixedHeight(h))
}

// MinSize bounds both extents from below.
func MinSize(w, h float64) Builder {
	return Combine("min_size", MinWidth(w), MinHeight(h))
}

// AspectRatio requires ratio*width == height.
func AspectRatio(ratio float64) Builder {
	e := ex(self.Width).Scale(ratio).Minus(ex(self.Height))
	return newBuilder("aspect_ratio", cassowary.Required, fixed(e, cassowary.EQ))
}

// ShrinkHorizontal pulls the width towards zero at weak strength.
func ShrinkHorizontal() Builder {
	return newBuilder("shrink_horizontal", cassowary.Weak, fixed(ex(self.Width), cassowary.EQ))
}

// ShrinkVertical pulls the height towards zero at weak strength.
func ShrinkVertical() Builder {
	return newBuilder("shrink_vertical", cassowary.Weak, fixed(ex(self.Height), cassowary.EQ))
}

// Shrink pulls both extents towards zero at weak strength, so that a widget
// without other size constraints collapses instead of floating.
func Shrink() Builder {
	return Combine("shrink", ShrinkHorizontal(), ShrinkVertical())
}

// =============================================================================
// Positioning
// =============================================================================

// TopLeft places the top-left corner at (x, y).
func TopLeft(x, y float64) Builder {
	return newBuilder("top_left", cassowary.Required,
		fixed(ex(self.Left).Minus(cassowary.Constant(x)), cassowary.EQ),
		fixed(ex(self.Top).Minus(cassowary.Constant(y)), cassowary.EQ),
	)
}

// CenterHorizontal makes the gap to other's left edge equal the gap to its
// right edge.
func CenterHorizontal(other Ref) Builder {
	o := other.LayoutVars()
	e := diff(self.Left, o.Left).Minus(diff(o.Right, self.Right))
	return newBuilder("center_horizontal", cassowary.Required, fixed(e, cassowary.EQ))
}

// CenterVertical makes the gap to other's top edge equal the gap to its
// bottom edge.
func CenterVertical(other Ref) Builder {
	o := other.LayoutVars()
	e := diff(self.Top, o.Top).Minus(diff(o.Bottom, self.Bottom))
	return newBuilder("center_vertical", cassowary.Required, fixed(e, cassowary.EQ))
}

// Center centers the target inside other on both axes.
func Center(other Ref) Builder {
	return Combine("center", CenterHorizontal(other), CenterVertical(other))
}

// =============================================================================
// Alignment and adjacency
// =============================================================================

// AlignLeft requires self.left - other.left == padding.
func AlignLeft(other Ref) Builder {
	return newBuilder("align_left", cassowary.Required, padded(diff(self.Left, other.LayoutVars().Left), cassowary.EQ))
}

// AlignTop requires self.top - other.top == padding.
func AlignTop(other Ref) Builder {
	return newBuilder("align_top", cassowary.Required, padded(diff(self.Top, other.LayoutVars().Top), cassowary.EQ))
}

// AlignRight requires other.right - self.right == padding.
func AlignRight(other Ref) Builder {
	return newBuilder("align_right", cassowary.Required, padded(diff(other.LayoutVars().Right, self.Right), cassowary.EQ))
}

// AlignBottom requires other.bottom - self.bottom == padding.
func AlignBottom(other Ref) Builder {
	return newBuilder("align_bottom", cassowary.Required, padded(diff(other.LayoutVars().Bottom, self.Bottom), cassowary.EQ))
}

// ToRightOf requires self.left - other.right >= padding.
func ToRightOf(other Ref) Builder {
	return newBuilder("to_right_of", cassowary.Required, padded(diff(self.Left, other.LayoutVars().Right), cassowary.GE))
}

// ToLeftOf requires other.left - self.right >= padding.
func ToLeftOf(other Ref) Builder {
	return newBuilder("to_left_of", cassowary.Required, padded(diff(other.LayoutVars().Left, self.Right), cassowary.GE))
}

// Below requires self.top - other.bottom >= padding.
func Below(other Ref) Builder {
	return newBuilder("below", cassowary.Required, padded(diff(self.Top, other.LayoutVars().Bottom), cassowary.GE))
}

// Above requires other.top - self.bottom >= padding.
func Above(other Ref) Builder {
	return newBuilder("above", cassowary.Required, padded(diff(other.LayoutVars().Top, self.Bottom), cassowary.GE))
}

// =============================================================================
// Containment
// =============================================================================

// BoundLeft requires self.left - other.left >= padding.
func BoundLeft(other Ref) Builder {
	return newBuilder("bound_left", cassowary.Required, padded(diff(self.Left, other.LayoutVars().Left), cassowary.GE))
}

// BoundTop requires self.top - other.top >= padding.
func BoundTop(other Ref) Builder {
	return newBuilder("bound_top", cassowary.Required, padded(diff(self.Top, other.LayoutVars().Top), cassowary.GE))
}

// BoundRight requires other.right - self.right >= padding.
func BoundRight(other Ref) Builder {
	return newBuilder("bound_right", cassowary.Required, padded(diff(other.LayoutVars().Right, self.Right), cassowary.GE))
}

// BoundBottom requires other.bottom - self.bottom >= padding.
func BoundBottom(other Ref) Builder {
	return newBuilder("bound_bottom", cassowary.Required, padded(diff(other.LayoutVars().Bottom, self.Bottom), cassowary.GE))
}

// BoundBy keeps the target inside other, each side at least padding away.
func BoundBy(other Ref) Builder {
	return Combine("bound_by", BoundLeft(other), BoundTop(other), BoundRight(other), BoundBottom(other))
}

// =============================================================================
// Matching
// =============================================================================

// MatchWidth requires other.width - self.width == padding.
func MatchWidth(other Ref) Builder {
	return newBuilder("match_width", cassowary.Required, padded(diff(other.LayoutVars().Width, self.Width), cassowary.EQ))
}

// MatchHeight requires other.height - self.height == padding.
func MatchHeight(other Ref) Builder {
	return newBuilder("match_height", cassowary.Required, padded(diff(other.LayoutVars().Height, self.Height), cassowary.EQ))
}

// MatchLayout makes the target cover other, inset by padding on every side.
func MatchLayout(other Ref) Builder {
	return Combine("match_layout", AlignLeft(other), AlignTop(other), AlignRight(other), AlignBottom(other))
}
