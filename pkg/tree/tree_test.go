package tree_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/limn/pkg/cassowary"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/layout/container"
	"github.com/matzehuels/limn/pkg/tree"
)

const tol = 1e-6

func window(t *testing.T, w, h float64) (*tree.Tree, *tree.Widget) {
	t.Helper()
	tr := tree.New()
	root := tree.NewWidget("window")
	root.Layout().Add(layout.TopLeft(0, 0), layout.Size(w, h))
	require.NoError(t, tr.SetRoot(root))
	return tr, root
}

func names(ws []*tree.Widget) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Name()
	}
	return out
}

func TestUpdateReportsDirtyWidgets(t *testing.T) {
	tr, root := window(t, 400, 300)
	child := tree.NewWidget("child")
	child.Layout().Add(layout.AlignLeft(root).Padding(10), layout.AlignTop(root).Padding(20), layout.Size(50, 60))
	require.NoError(t, tr.AddChild(root.ID(), child))

	dirty, err := tr.Update()
	require.NoError(t, err)
	assert.Equal(t, []string{"window", "child"}, names(dirty))

	b, ok := tr.Bounds(child.ID())
	require.True(t, ok)
	assert.Equal(t, tree.Rect{Left: 10, Top: 20, Right: 60, Bottom: 80, Width: 50, Height: 60}, b)

	dirty, err = tr.Update()
	require.NoError(t, err)
	assert.Empty(t, dirty, "nothing changed")

	require.NoError(t, tr.Suggest(root.ID(), layout.Width, 0, cassowary.Strong))
	dirty, err = tr.Update()
	require.NoError(t, err)
	assert.Empty(t, dirty, "suggestion below required size changes nothing")
}

func TestRemoveMiddleChildOfLinear(t *testing.T) {
	tr, root := window(t, 400, 100)
	require.NoError(t, tr.SetLinear(root.ID(), container.Horizontal, 10))

	var kids []*tree.Widget
	for _, n := range []string{"a", "b", "c"} {
		w := tree.NewWidget(n)
		w.Layout().Add(layout.FixedWidth(100), layout.FixedHeight(80))
		require.NoError(t, tr.AddChild(root.ID(), w))
		kids = append(kids, w)
	}
	_, err := tr.Update()
	require.NoError(t, err)
	assert.InDelta(t, 230, kids[2].Bounds().Left, tol)

	require.NoError(t, tr.Remove(kids[1].ID()))
	dirty, err := tr.Update()
	require.NoError(t, err)

	a, c := kids[0].Bounds(), kids[2].Bounds()
	assert.InDelta(t, 10, c.Left-a.Right, tol)
	assert.Equal(t, []string{"c"}, names(dirty))
	assert.Equal(t, []layout.EntityID{kids[0].ID(), kids[2].ID()}, root.Children())
	_, ok := tr.Widget(kids[1].ID())
	assert.False(t, ok)
}

func TestRemoveSubtree(t *testing.T) {
	tr, root := window(t, 100, 100)
	panel := tree.NewWidget("panel")
	panel.Layout().Add(layout.MatchLayout(root))
	require.NoError(t, tr.AddChild(root.ID(), panel))
	for range 3 {
		w := tree.NewWidget("leaf")
		w.Layout().Add(layout.BoundBy(panel), layout.Size(10, 10), layout.TopLeft(5, 5))
		require.NoError(t, tr.AddChild(panel.ID(), w))
	}
	_, err := tr.Update()
	require.NoError(t, err)
	require.Equal(t, 5, tr.Len())

	require.NoError(t, tr.Remove(panel.ID()))
	assert.Equal(t, 1, tr.Len())
	assert.Empty(t, root.Children())
	assert.Equal(t, []layout.EntityID{root.ID()}, tr.Solver().Entities())

	require.ErrorIs(t, tr.AddChild(root.ID(), panel), tree.ErrAlreadyAttached, "removed widgets are not reused")
}

func TestHideRetractsOwnConstraints(t *testing.T) {
	tr, root := window(t, 200, 200)
	w := tree.NewWidget("w")
	w.Layout().Add(layout.AlignLeft(root).Padding(30))
	require.NoError(t, tr.AddChild(root.ID(), w))
	// Owned by the root, so hiding w leaves it in place.
	root.Layout().AddConstraints(layout.AlignLeft(root).Strength(cassowary.Medium).Resolve(w.LayoutVars())...)
	_, err := tr.Update()
	require.NoError(t, err)
	require.InDelta(t, 30, w.Bounds().Left, tol)

	require.NoError(t, tr.Hide(w.ID()))
	assert.True(t, w.Hidden())
	_, err = tr.Update()
	require.NoError(t, err)
	assert.InDelta(t, 0, w.Bounds().Left, tol)

	require.NoError(t, tr.Unhide(w.ID()))
	assert.False(t, w.Hidden())
	_, err = tr.Update()
	require.NoError(t, err)
	assert.InDelta(t, 30, w.Bounds().Left, tol)
}

func TestGridContainer(t *testing.T) {
	tr, root := window(t, 200, 100)
	require.NoError(t, tr.SetGrid(root.ID(), 2))
	require.ErrorIs(t, tr.SetGrid(root.ID(), 2), tree.ErrContainerSet)

	for range 4 {
		w := tree.NewWidget("cell")
		w.Layout().Add(layout.Size(100, 50))
		require.NoError(t, tr.AddChild(root.ID(), w))
	}
	_, err := tr.Update()
	require.NoError(t, err)

	var got []tree.Rect
	for _, id := range root.Children() {
		b, _ := tr.Bounds(id)
		got = append(got, b)
	}
	require.Len(t, got, 4)
	assert.InDelta(t, 100, got[1].Left, tol)
	assert.InDelta(t, 50, got[2].Top, tol)
	assert.InDelta(t, 100, got[3].Left, tol)
	assert.InDelta(t, 50, got[3].Top, tol)
}

func TestSetGridRejectsZeroColumns(t *testing.T) {
	tr, root := window(t, 10, 10)
	require.ErrorIs(t, tr.SetGrid(root.ID(), 0), container.ErrZeroColumns)
}

func TestWalkAndFind(t *testing.T) {
	tr, root := window(t, 10, 10)
	a, b := tree.NewWidget("a"), tree.NewWidget("b")
	require.NoError(t, tr.AddChild(root.ID(), a))
	require.NoError(t, tr.AddChild(a.ID(), b))

	var visited []string
	var depths []int
	tr.Walk(func(w *tree.Widget, depth int) bool {
		visited = append(visited, w.Name())
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"window", "a", "b"}, visited)
	assert.Equal(t, []int{0, 1, 2}, depths)

	got, ok := tr.Find("b")
	require.True(t, ok)
	assert.Equal(t, b.ID(), got.ID())
	assert.Equal(t, a.ID(), got.Parent())
	_, ok = tr.Find("missing")
	assert.False(t, ok)
}

func TestErrors(t *testing.T) {
	tr, root := window(t, 10, 10)
	require.ErrorIs(t, tr.SetRoot(tree.NewWidget("other")), tree.ErrRootSet)
	require.ErrorIs(t, tr.AddChild(layout.EntityID(1<<60), tree.NewWidget("x")), tree.ErrUnknownWidget)
	require.ErrorIs(t, tr.AddChild(root.ID(), root), tree.ErrAlreadyAttached)
	require.ErrorIs(t, tr.Remove(layout.EntityID(1<<60)), tree.ErrUnknownWidget)
	require.ErrorIs(t, tr.Hide(layout.EntityID(1<<60)), tree.ErrUnknownWidget)

	w := tree.NewWidget("w")
	w.Layout().Add(layout.FixedWidth(20), layout.BoundBy(root))
	err := tr.AddChild(root.ID(), w)
	require.Error(t, err)
	var ce *layout.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "w", ce.Name)
	_, ok := tr.Widget(w.ID())
	assert.True(t, ok, "a conflicting constraint does not prevent attaching")
}
