package container_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/limn/pkg/cassowary"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/layout/container"
)

const tol = 1e-6

type harness struct {
	t      *testing.T
	solver *layout.Solver
	seen   map[layout.EntityID]map[layout.VarKind]float64
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:      t,
		solver: layout.NewSolver(),
		seen:   make(map[layout.EntityID]map[layout.VarKind]float64),
	}
}

func (h *harness) apply(changes []layout.Change) {
	for _, c := range changes {
		if h.seen[c.Entity] == nil {
			h.seen[c.Entity] = make(map[layout.VarKind]float64)
		}
		h.seen[c.Entity][c.Kind] = c.Value
	}
}

func (h *harness) register(ls ...*layout.Layout) {
	for _, l := range ls {
		changes, err := h.solver.Register(l)
		require.NoError(h.t, err)
		h.apply(changes)
	}
}

func (h *harness) flush(ls ...*layout.Layout) {
	for _, l := range ls {
		require.NoError(h.t, h.solver.Flush(l))
	}
	h.apply(h.solver.FetchChanges())
}

func (h *harness) get(l *layout.Layout, k layout.VarKind) float64 {
	return h.seen[l.ID()][k]
}

func fixedRoot(w, h float64) *layout.Layout {
	root := layout.New("root")
	root.Add(layout.TopLeft(0, 0), layout.Size(w, h))
	return root
}

func TestLinearHorizontal(t *testing.T) {
	h := newHarness(t)
	root := fixedRoot(400, 100)
	row := container.NewLinear(root, container.Horizontal, 10)

	var kids []*layout.Layout
	for _, name := range []string{"a", "b", "c"} {
		k := layout.New(name)
		k.Add(layout.FixedWidth(100), layout.FixedHeight(50))
		require.NoError(t, row.AddChild(k))
		kids = append(kids, k)
	}
	h.register(root)
	h.register(kids...)
	h.flush(root)

	for i, want := range []float64{10, 120, 230} {
		require.InDelta(t, want, h.get(kids[i], layout.Left), tol, "child %d", i)
		require.InDelta(t, want+100, h.get(kids[i], layout.Right), tol, "child %d", i)
	}
	require.Equal(t, []layout.EntityID{kids[0].ID(), kids[1].ID(), kids[2].ID()}, row.Children())
	require.Error(t, row.AddChild(kids[0]))
}

func TestLinearRemoveMiddleBridges(t *testing.T) {
	h := newHarness(t)
	root := fixedRoot(400, 100)
	row := container.NewLinear(root, container.Horizontal, 10)

	a, b, c := layout.New("a"), layout.New("b"), layout.New("c")
	for _, k := range []*layout.Layout{a, b, c} {
		k.Add(layout.FixedWidth(100))
		require.NoError(t, row.AddChild(k))
	}
	h.register(root, a, b, c)
	h.flush(root)
	require.InDelta(t, 230, h.get(c, layout.Left), tol)

	require.True(t, row.RemoveChild(b.ID()))
	require.True(t, h.solver.Unregister(b.ID()))
	h.flush(a, c, root)

	require.InDelta(t, 110, h.get(a, layout.Right), tol)
	require.InDelta(t, 120, h.get(c, layout.Left), tol)
	require.InDelta(t, 10, h.get(c, layout.Left)-h.get(a, layout.Right), tol)
	require.Equal(t, []layout.EntityID{a.ID(), c.ID()}, row.Children())
	require.False(t, row.RemoveChild(b.ID()))
}

func TestLinearRemoveHeadAndTail(t *testing.T) {
	h := newHarness(t)
	root := fixedRoot(100, 400)
	col := container.NewLinear(root, container.Vertical, 5)

	a, b, c := layout.New("a"), layout.New("b"), layout.New("c")
	heights := make(map[*layout.Layout][]*cassowary.Constraint)
	for _, k := range []*layout.Layout{a, b, c} {
		heights[k] = k.Add(layout.FixedHeight(50))
		require.NoError(t, col.AddChild(k))
	}
	h.register(root, a, b, c)
	h.flush(root)
	require.InDelta(t, 5, h.get(a, layout.Top), tol)
	require.InDelta(t, 115, h.get(c, layout.Top), tol)

	col.RemoveChild(a.ID())
	h.solver.Unregister(a.ID())
	h.flush(b, c, root)
	require.InDelta(t, 5, h.get(b, layout.Top), tol)
	require.InDelta(t, 60, h.get(c, layout.Top), tol)

	col.RemoveChild(c.ID())
	h.solver.Unregister(c.ID())
	h.flush(b, root)
	require.Equal(t, []layout.EntityID{b.ID()}, col.Children())

	// The closing constraint now follows b and wins over the bridge.
	b.RemoveConstraints(heights[b]...)
	b.Add(layout.FixedHeight(392))
	h.flush(b, root)
	require.InDelta(t, 392, h.get(b, layout.Height), tol)
	require.InDelta(t, 395, h.get(b, layout.Bottom), tol)
	require.InDelta(t, 3, h.get(b, layout.Top), tol, "the strong bridge to the top yields")
}

func TestLinearAllowsChildrenInsideLargerContainer(t *testing.T) {
	h := newHarness(t)
	root := fixedRoot(300, 100)
	row := container.NewLinear(root, container.Horizontal, 0)

	k := layout.New("k")
	k.Add(layout.FixedWidth(50), layout.FixedHeight(20))
	require.NoError(t, row.AddChild(k))
	h.register(root, k)
	h.flush(root)

	require.InDelta(t, 0, h.get(k, layout.Left), tol)
	require.GreaterOrEqual(t, h.get(k, layout.Top), -tol)
	require.LessOrEqual(t, h.get(k, layout.Bottom), 100+tol)
}

func TestGridRejectsZeroColumns(t *testing.T) {
	_, err := container.NewGrid(layout.New("g"), 0)
	require.ErrorIs(t, err, container.ErrZeroColumns)
	_, err = container.NewGrid(layout.New("g"), -2)
	require.ErrorIs(t, err, container.ErrZeroColumns)
}

func TestGridPlacement(t *testing.T) {
	h := newHarness(t)
	root := fixedRoot(300, 200)
	g, err := container.NewGrid(root, 3)
	require.NoError(t, err)

	var kids []*layout.Layout
	for i := range 4 {
		k := layout.New("cell")
		k.Add(layout.Size(100, 100))
		require.NoError(t, g.AddChild(k))
		kids = append(kids, k)
		cell, ok := g.Cell(k.ID())
		require.True(t, ok)
		require.Equal(t, container.Cell{Row: i / 3, Column: i % 3}, cell)
	}
	require.Equal(t, 2, g.Rows())
	require.Equal(t, 3, g.Columns())

	h.register(root)
	h.register(kids...)
	h.flush(root)

	want := [][2]float64{{0, 0}, {100, 0}, {200, 0}, {0, 100}}
	for i, k := range kids {
		require.InDelta(t, want[i][0], h.get(k, layout.Left), tol, "cell %d", i)
		require.InDelta(t, want[i][1], h.get(k, layout.Top), tol, "cell %d", i)
	}

	// Row and column helpers are never part of the change feed.
	for id := range h.seen {
		_, ok := h.solver.Layout(id)
		require.True(t, ok, "change for unknown entity %v", id)
	}
	require.Len(t, h.seen, 5)
}

func TestGridRemoveChild(t *testing.T) {
	root := fixedRoot(100, 100)
	g, err := container.NewGrid(root, 2)
	require.NoError(t, err)
	a, b := layout.New("a"), layout.New("b")
	require.NoError(t, g.AddChild(a))
	require.NoError(t, g.AddChild(b))

	require.True(t, g.RemoveChild(a.ID()))
	require.False(t, g.RemoveChild(a.ID()))
	require.Equal(t, []layout.EntityID{b.ID()}, g.Children())
	require.Equal(t, 1, g.Len())
}

func TestParseOrientation(t *testing.T) {
	o, err := container.ParseOrientation("vertical")
	require.NoError(t, err)
	require.Equal(t, container.Vertical, o)
	require.Equal(t, "horizontal", container.Horizontal.String())
	_, err = container.ParseOrientation("diagonal")
	require.Error(t, err)
}
