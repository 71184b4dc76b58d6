// Package tree connects [layout.Solver] to a widget hierarchy.
//
// A [Tree] owns one solver. Each [Widget] wraps a [layout.Layout]; attaching
// a widget registers its layout, removing it unregisters the whole subtree.
// A widget may carry a container strategy from package container that
// positions its children.
//
// # Update Cycle
//
// Changes to layouts are queued. [Tree.Update] flushes every layout with
// pending work, reads the solver's change feed and copies the new values
// into widget bounds. It returns exactly the widgets whose bounds changed,
// which is the set a renderer needs to redraw:
//
//	t := tree.New()
//	root := tree.NewWidget("window")
//	root.Layout().Add(layout.TopLeft(0, 0), layout.Size(800, 600))
//	t.SetRoot(root)
//	t.SetLinear(root.ID(), container.Horizontal, 8)
//
//	side := tree.NewWidget("sidebar")
//	side.Layout().Add(layout.FixedWidth(200))
//	t.AddChild(root.ID(), side)
//
//	dirty, err := t.Update()
//
// # Removal
//
// [Tree.Remove] notifies the parent's container before unregistering the
// subtree, so a linear container can bridge the neighbours of the removed
// widget in the same update.
package tree
