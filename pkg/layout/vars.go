package layout

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/matzehuels/limn/pkg/cassowary"
)

var entityIDs atomic.Uint64

// EntityID identifies one layout participant. IDs are process-unique and
// never reused; the zero value is not a valid entity.
type EntityID uint64

// NewEntityID allocates a fresh entity id.
func NewEntityID() EntityID {
	return EntityID(entityIDs.Add(1))
}

// String returns the id as "#<n>".
func (id EntityID) String() string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}

// VarKind names one of the six geometry variables of an entity.
type VarKind int

const (
	Left VarKind = iota
	Top
	Right
	Bottom
	Width
	Height
)

// Kinds lists every VarKind in declaration order.
var Kinds = [...]VarKind{Left, Top, Right, Bottom, Width, Height}

var kindNames = [...]string{"left", "top", "right", "bottom", "width", "height"}

// String returns the lower-case name of k.
func (k VarKind) String() string {
	if k < Left || k > Height {
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseVarKind parses a kind name, ignoring case.
func ParseVarKind(s string) (VarKind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(s, n) {
			return VarKind(i), nil
		}
	}
	return 0, fmt.Errorf("layout: unknown variable kind %q", s)
}

// MarshalText encodes k by name.
func (k VarKind) MarshalText() ([]byte, error) {
	if k < Left || k > Height {
		return nil, fmt.Errorf("layout: invalid variable kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *VarKind) UnmarshalText(b []byte) error {
	v, err := ParseVarKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Vars is the variable set of one entity: four edges and two extents.
type Vars struct {
	Left   *cassowary.Variable
	Top    *cassowary.Variable
	Right  *cassowary.Variable
	Bottom *cassowary.Variable
	Width  *cassowary.Variable
	Height *cassowary.Variable
}

// NewVars creates six fresh variables named "<name>.<kind>".
func NewVars(name string) *Vars {
	v := func(k VarKind) *cassowary.Variable {
		return cassowary.NewVariable(name + "." + k.String())
	}
	return &Vars{
		Left:   v(Left),
		Top:    v(Top),
		Right:  v(Right),
		Bottom: v(Bottom),
		Width:  v(Width),
		Height: v(Height),
	}
}

// LayoutVars returns v itself, so a bare variable set can be used wherever a
// [Ref] is expected.
func (v *Vars) LayoutVars() *Vars { return v }

// Var returns the variable of kind k.
func (v *Vars) Var(k VarKind) *cassowary.Variable {
	switch k {
	case Left:
		return v.Left
	case Top:
		return v.Top
	case Right:
		return v.Right
	case Bottom:
		return v.Bottom
	case Width:
		return v.Width
	case Height:
		return v.Height
	}
	panic(fmt.Sprintf("layout: invalid variable kind %d", int(k)))
}

// All returns the six variables in [Kinds] order.
func (v *Vars) All() [6]*cassowary.Variable {
	return [6]*cassowary.Variable{v.Left, v.Top, v.Right, v.Bottom, v.Width, v.Height}
}

// Kind reports which of v's variables x is.
func (v *Vars) Kind(x *cassowary.Variable) (VarKind, bool) {
	for i, y := range v.All() {
		if x == y {
			return VarKind(i), true
		}
	}
	return 0, false
}

// Identity returns new instances of the two required constraints tying the
// edges to the extents: right - left == width and bottom - top == height.
func (v *Vars) Identity() []*cassowary.Constraint {
	return []*cassowary.Constraint{
		cassowary.Equals(cassowary.Var(v.Right).Minus(cassowary.Var(v.Left)), cassowary.Var(v.Width), cassowary.Required),
		cassowary.Equals(cassowary.Var(v.Bottom).Minus(cassowary.Var(v.Top)), cassowary.Var(v.Height), cassowary.Required),
	}
}

// Ref is anything that exposes a variable set: a [Layout], or [Vars] itself.
type Ref interface {
	LayoutVars() *Vars
}
