package container

import (
	"fmt"

	"github.com/matzehuels/limn/pkg/cassowary"
	"github.com/matzehuels/limn/pkg/layout"
)

// Orientation is the main axis of a [Linear] container.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// String returns "horizontal" or "vertical".
func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// ParseOrientation parses "horizontal" or "vertical".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "horizontal", "row":
		return Horizontal, nil
	case "vertical", "column":
		return Vertical, nil
	}
	return 0, fmt.Errorf("container: unknown orientation %q", s)
}

// link is one slot of the chain arena.
type link struct {
	layout    *layout.Layout
	prev      layout.EntityID
	next      layout.EntityID
	bounds    []*cassowary.Constraint
	adjacency *cassowary.Constraint
}

// Linear lays children out one after another along an axis. Each child's
// start edge sits padding after its predecessor's end edge (or the
// container's start edge), the children are bound inside the container on
// the cross axis, and the last child's end edge stays at least padding
// before the container's end edge.
//
// The chain is an arena keyed by entity id with predecessor and successor
// ids, so removing a child in the middle is a constant-time relink.
type Linear struct {
	parent      *layout.Layout
	orientation Orientation
	padding     float64

	links   map[layout.EntityID]*link
	first   layout.EntityID
	last    layout.EntityID
	closing *cassowary.Constraint
}

// NewLinear creates a linear strategy for the parent layout.
func NewLinear(parent *layout.Layout, o Orientation, padding float64) *Linear {
	return &Linear{
		parent:      parent,
		orientation: o,
		padding:     padding,
		links:       make(map[layout.EntityID]*link),
	}
}

// Orientation returns the main axis.
func (c *Linear) Orientation() Orientation { return c.orientation }

// Padding returns the gap between children and around them.
func (c *Linear) Padding() float64 { return c.padding }

func (c *Linear) start(vs *layout.Vars) *cassowary.Variable {
	if c.orientation == Horizontal {
		return vs.Left
	}
	return vs.Top
}

func (c *Linear) end(vs *layout.Vars) *cassowary.Variable {
	if c.orientation == Horizontal {
		return vs.Right
	}
	return vs.Bottom
}

// gap returns the constraint a - b == padding at strength s.
func (c *Linear) gap(a, b *cassowary.Variable, s cassowary.Strength) *cassowary.Constraint {
	return cassowary.Equals(cassowary.Var(a).Minus(cassowary.Var(b)), cassowary.Constant(c.padding), s)
}

// AddChild appends child to the chain. Constraints are queued on the child
// and parent layouts; both need a flush.
func (c *Linear) AddChild(child *layout.Layout) error {
	id := child.ID()
	if _, ok := c.links[id]; ok {
		return fmt.Errorf("container: %s is already a child of %s", child.Name(), c.parent.Name())
	}

	var cross []layout.Builder
	if c.orientation == Horizontal {
		cross = []layout.Builder{layout.BoundTop(c.parent).Padding(c.padding), layout.BoundBottom(c.parent).Padding(c.padding)}
	} else {
		cross = []layout.Builder{layout.BoundLeft(c.parent).Padding(c.padding), layout.BoundRight(c.parent).Padding(c.padding)}
	}
	l := &link{layout: child, prev: c.last, bounds: child.Add(cross...)}

	prevEnd := c.start(c.parent.Vars())
	if tail, ok := c.links[c.last]; ok {
		prevEnd = c.end(tail.layout.Vars())
		tail.next = id
	} else {
		c.first = id
	}
	l.adjacency = c.gap(c.start(child.Vars()), prevEnd, cassowary.Required)
	child.AddConstraints(l.adjacency)

	c.links[id] = l
	c.last = id
	c.close()
	return nil
}

// RemoveChild takes child out of the chain and bridges its predecessor and
// successor with a strong, not required, adjacency constraint. It reports
// false if id is not a child.
func (c *Linear) RemoveChild(id layout.EntityID) bool {
	l, ok := c.links[id]
	if !ok {
		return false
	}
	delete(c.links, id)
	l.layout.RemoveConstraints(l.bounds...)
	l.layout.RemoveConstraint(l.adjacency)

	pred, hasPred := c.links[l.prev]
	succ, hasSucc := c.links[l.next]
	if hasPred {
		pred.next = l.next
	} else {
		c.first = l.next
	}

	if hasSucc {
		succ.prev = l.prev
		prevEnd := c.start(c.parent.Vars())
		if hasPred {
			prevEnd = c.end(pred.layout.Vars())
		}
		succ.layout.RemoveConstraint(succ.adjacency)
		succ.adjacency = c.gap(c.start(succ.layout.Vars()), prevEnd, cassowary.Strong)
		succ.layout.AddConstraints(succ.adjacency)
	} else {
		c.last = l.prev
		c.close()
	}
	return true
}

// close swaps the constraint keeping the tail inside the container.
func (c *Linear) close() {
	if c.closing != nil {
		c.parent.RemoveConstraint(c.closing)
		c.closing = nil
	}
	tail, ok := c.links[c.last]
	if !ok {
		return
	}
	e := cassowary.Var(c.end(c.parent.Vars())).Minus(cassowary.Var(c.end(tail.layout.Vars())))
	c.closing = cassowary.GreaterOrEqual(e, cassowary.Constant(c.padding), cassowary.Required)
	c.parent.AddConstraints(c.closing)
}

// Children returns the children in chain order.
func (c *Linear) Children() []layout.EntityID {
	out := make([]layout.EntityID, 0, len(c.links))
	for id := c.first; id != 0; {
		l, ok := c.links[id]
		if !ok {
			break
		}
		out = append(out, id)
		id = l.next
	}
	return out
}

// Len returns the number of children.
func (c *Linear) Len() int { return len(c.links) }
