// Package container provides layout strategies that position the children
// of a parent [layout.Layout].
//
// A strategy only queues constraints on the parent and child layouts; the
// caller flushes them through a [layout.Solver]. Strategies never touch the
// solver directly, so they can be built before any entity is registered.
//
// # Linear
//
// [Linear] chains children along one axis:
//
//	row := container.NewLinear(parent, container.Horizontal, 8)
//	row.AddChild(a)
//	row.AddChild(b)
//
// Removing a child bridges its neighbours with a strong adjacency constraint
// at the same padding, so the remaining children close the gap.
//
// # Grid
//
// [Grid] splits the parent into equal-width columns and equal-height rows.
// Rows are created on demand as children wrap. The row and column variable
// sets are helper variables of the parent and do not appear in the change
// feed.
package container

import "github.com/matzehuels/limn/pkg/layout"

// Strategy is the common surface of [Linear] and [Grid].
type Strategy interface {
	AddChild(child *layout.Layout) error
	RemoveChild(id layout.EntityID) bool
	Children() []layout.EntityID
	Len() int
}

var (
	_ Strategy = (*Linear)(nil)
	_ Strategy = (*Grid)(nil)
)
