package container

import (
	"errors"
	"fmt"

	"github.com/matzehuels/limn/pkg/cassowary"
	"github.com/matzehuels/limn/pkg/layout"
)

// ErrZeroColumns is returned by [NewGrid] when the column count is not
// positive.
var ErrZeroColumns = errors.New("container: grid needs at least one column")

// Cell is a grid position.
type Cell struct {
	Row    int
	Column int
}

// Grid places children in a fixed number of equal-width columns, filling
// rows left to right. Columns and rows are helper variable sets owned by the
// parent entity; they take part in solving but are never reported as
// changes.
type Grid struct {
	parent  *layout.Layout
	columns []*layout.Vars
	rows    []*layout.Vars
	next    int
	closing *cassowary.Constraint
	cells   map[layout.EntityID]Cell
	bounds  map[layout.EntityID][]*cassowary.Constraint
	kids    map[layout.EntityID]*layout.Layout
	order   []layout.EntityID
}

// NewGrid creates a grid strategy with n columns for the parent layout. The
// column variables and their constraints are queued on the parent.
func NewGrid(parent *layout.Layout, n int) (*Grid, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrZeroColumns, n)
	}
	g := &Grid{
		parent: parent,
		cells:  make(map[layout.EntityID]Cell),
		bounds: make(map[layout.EntityID][]*cassowary.Constraint),
		kids:   make(map[layout.EntityID]*layout.Layout),
	}
	for i := range n {
		col := layout.NewVars(fmt.Sprintf("%s.col%d", parent.Name(), i))
		g.adopt(col)
		g.parent.AddConstraints(
			layout.Combine("column", layout.AlignTop(parent), layout.AlignBottom(parent)).Resolve(col)...,
		)
		if i == 0 {
			g.parent.AddConstraints(layout.AlignLeft(parent).Resolve(col)...)
		} else {
			prev := g.columns[i-1]
			g.parent.AddConstraints(follow(col.Left, prev.Right))
			g.parent.AddConstraints(layout.MatchWidth(prev).Resolve(col)...)
		}
		g.columns = append(g.columns, col)
	}
	g.parent.AddConstraints(layout.AlignRight(parent).Resolve(g.columns[n-1])...)
	return g, nil
}

// follow returns the required constraint a == b.
func follow(a, b *cassowary.Variable) *cassowary.Constraint {
	return cassowary.Equals(cassowary.Var(a), cassowary.Var(b), cassowary.Required)
}

func (g *Grid) adopt(vs *layout.Vars) {
	g.parent.AddAuxVars(vs)
	g.parent.AddConstraints(vs.Identity()...)
}

// Columns returns the column count.
func (g *Grid) Columns() int { return len(g.columns) }

// Rows returns the number of rows created so far.
func (g *Grid) Rows() int { return len(g.rows) }

// addRow appends a row spanning the parent's width and moves the closing
// constraint so the last row ends at the parent's bottom edge.
func (g *Grid) addRow() *layout.Vars {
	row := layout.NewVars(fmt.Sprintf("%s.row%d", g.parent.Name(), len(g.rows)))
	g.adopt(row)
	g.parent.AddConstraints(
		layout.Combine("row", layout.AlignLeft(g.parent), layout.AlignRight(g.parent)).Resolve(row)...,
	)
	if len(g.rows) == 0 {
		g.parent.AddConstraints(layout.AlignTop(g.parent).Resolve(row)...)
	} else {
		prev := g.rows[len(g.rows)-1]
		g.parent.AddConstraints(follow(row.Top, prev.Bottom))
		g.parent.AddConstraints(layout.MatchHeight(prev).Resolve(row)...)
	}
	if g.closing != nil {
		g.parent.RemoveConstraint(g.closing)
	}
	g.closing = follow(g.parent.Vars().Bottom, row.Bottom)
	g.parent.AddConstraints(g.closing)

	g.rows = append(g.rows, row)
	g.next = 0
	return row
}

// AddChild places child in the next free cell, opening a new row when the
// current one is full.
func (g *Grid) AddChild(child *layout.Layout) error {
	id := child.ID()
	if _, ok := g.cells[id]; ok {
		return fmt.Errorf("container: %s is already a child of %s", child.Name(), g.parent.Name())
	}
	if len(g.rows) == 0 || g.next == len(g.columns) {
		g.addRow()
	}
	cell := Cell{Row: len(g.rows) - 1, Column: g.next}
	g.bounds[id] = child.Add(layout.BoundBy(g.rows[cell.Row]), layout.BoundBy(g.columns[cell.Column]))
	g.kids[id] = child
	g.cells[id] = cell
	g.order = append(g.order, id)
	g.next++
	return nil
}

// RemoveChild releases the child from its cell. The cell stays empty; later
// children keep filling from the last position.
func (g *Grid) RemoveChild(id layout.EntityID) bool {
	if _, ok := g.cells[id]; !ok {
		return false
	}
	g.kids[id].RemoveConstraints(g.bounds[id]...)
	delete(g.cells, id)
	delete(g.bounds, id)
	delete(g.kids, id)
	for i, o := range g.order {
		if o == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return true
}

// Cell returns the position of a child.
func (g *Grid) Cell(id layout.EntityID) (Cell, bool) {
	c, ok := g.cells[id]
	return c, ok
}

// Children returns the children in placement order.
func (g *Grid) Children() []layout.EntityID {
	return append([]layout.EntityID(nil), g.order...)
}

// Len returns the number of children.
func (g *Grid) Len() int { return len(g.cells) }
