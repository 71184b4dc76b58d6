package scene

import (
	"slices"
	"strings"

	"github.com/matzehuels/limn/pkg/layout"
)

// kind describes how a scene constraint maps onto a layout builder.
type kind struct {
	args   int
	target bool
	fixed  func(args []float64) layout.Builder
	rel    func(other layout.Ref) layout.Builder
}

func one(f func(float64) layout.Builder) kind {
	return kind{args: 1, fixed: func(a []float64) layout.Builder { return f(a[0]) }}
}

func two(f func(float64, float64) layout.Builder) kind {
	return kind{args: 2, fixed: func(a []float64) layout.Builder { return f(a[0], a[1]) }}
}

func none(f func() layout.Builder) kind {
	return kind{fixed: func([]float64) layout.Builder { return f() }}
}

func rel(f func(layout.Ref) layout.Builder) kind {
	return kind{target: true, rel: f}
}

var kinds = map[string]kind{
	"width":        one(layout.FixedWidth),
	"height":       one(layout.FixedHeight),
	"min_width":    one(layout.MinWidth),
	"min_height":   one(layout.MinHeight),
	"aspect_ratio": one(layout.AspectRatio),
	"size":         two(layout.Size),
	"min_size":     two(layout.MinSize),
	"top_left":     two(layout.TopLeft),

	"shrink":            none(layout.Shrink),
	"shrink_horizontal": none(layout.ShrinkHorizontal),
	"shrink_vertical":   none(layout.ShrinkVertical),

	"center":            rel(layout.Center),
	"center_horizontal": rel(layout.CenterHorizontal),
	"center_vertical":   rel(layout.CenterVertical),
	"align_left":        rel(layout.AlignLeft),
	"align_top":         rel(layout.AlignTop),
	"align_right":       rel(layout.AlignRight),
	"align_bottom":      rel(layout.AlignBottom),
	"to_right_of":       rel(layout.ToRightOf),
	"to_left_of":        rel(layout.ToLeftOf),
	"below":             rel(layout.Below),
	"above":             rel(layout.Above),
	"bound_left":        rel(layout.BoundLeft),
	"bound_top":         rel(layout.BoundTop),
	"bound_right":       rel(layout.BoundRight),
	"bound_bottom":      rel(layout.BoundBottom),
	"bound_by":          rel(layout.BoundBy),
	"match_width":       rel(layout.MatchWidth),
	"match_height":      rel(layout.MatchHeight),
	"match_layout":      rel(layout.MatchLayout),
}

// Kinds returns the supported constraint kinds, sorted.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func lookupKind(name string) (kind, bool) {
	k, ok := kinds[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}
