package layout

import (
	"testing"

	"github.com/matzehuels/limn/pkg/cassowary"
)

func TestBuilderResolve(t *testing.T) {
	me := NewVars("me")
	o := NewVars("o")
	name := func(v *cassowary.Variable) string { return v.Name() }

	tests := []struct {
		name    string
		builder Builder
		want    []string
	}{
		{"align_left", AlignLeft(o).Padding(4), []string{"me.left - o.left - 4 == 0 | required"}},
		{"align_right", AlignRight(o).Padding(10), []string{"o.right - me.right - 10 == 0 | required"}},
		{"to_right_of", ToRightOf(o), []string{"me.left - o.right >= 0 | required"}},
		{"above", Above(o).Padding(2), []string{"o.top - me.bottom - 2 >= 0 | required"}},
		{"match_width", MatchWidth(o).Padding(-3), []string{"o.width - me.width + 3 == 0 | required"}},
		{"shrink", Shrink(), []string{"me.width == 0 | weak", "me.height == 0 | weak"}},
		{"size ignores padding", Size(10, 20).Padding(99), []string{
			"me.width - 10 == 0 | required",
			"me.height - 20 == 0 | required",
		}},
		{"aspect_ratio", AspectRatio(0.5), []string{"0.5*me.width - me.height == 0 | required"}},
		{"center_horizontal", CenterHorizontal(o), []string{"me.left - o.left - o.right + me.right == 0 | required"}},
		{"bound_by", BoundBy(o).Padding(1).Strength(cassowary.Strong), []string{
			"me.left - o.left - 1 >= 0 | strong",
			"me.top - o.top - 1 >= 0 | strong",
			"o.right - me.right - 1 >= 0 | strong",
			"o.bottom - me.bottom - 1 >= 0 | strong",
		}},
		{"top_left", TopLeft(3, 4), []string{"me.left - 3 == 0 | required", "me.top - 4 == 0 | required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.builder.Resolve(me)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d constraints, want %d", len(got), len(tt.want))
			}
			for i, c := range got {
				if s := c.Format(name); s != tt.want[i] {
					t.Errorf("constraint %d = %q, want %q", i, s, tt.want[i])
				}
			}
		})
	}
}

func TestBuilderIsImmutable(t *testing.T) {
	o := NewVars("o")
	base := AlignLeft(o)
	_ = base.Padding(5).Strength(cassowary.Weak)

	c := base.Resolve(NewVars("me"))[0]
	if c.Strength() != cassowary.Required {
		t.Errorf("strength = %v, want required", c.Strength())
	}
	if got := c.Expression().Constant; got != 0 {
		t.Errorf("constant = %v, want 0", got)
	}
}

func TestResolveReturnsFreshHandles(t *testing.T) {
	b := FixedWidth(10)
	me := NewVars("me")
	a, c := b.Resolve(me)[0], b.Resolve(me)[0]
	if a == c {
		t.Fatal("expected distinct handles")
	}
	if !a.Equal(c) {
		t.Error("expected structurally equal constraints")
	}
}

func TestLayoutQueues(t *testing.T) {
	l := New("box")
	if got := len(l.DrainConstraints()); got != 2 {
		t.Fatalf("new layout queues %d constraints, want the 2 identity constraints", got)
	}
	if l.Pending() {
		t.Fatal("drain must clear the queue")
	}

	cs := l.Add(FixedWidth(5))
	l.RemoveConstraint(cs[0])
	if l.Pending() {
		t.Error("removing a queued constraint cancels it")
	}

	l.RemoveConstraint(cs[0])
	if got := l.DrainRemovedConstraints(); len(got) != 1 || got[0] != cs[0] {
		t.Errorf("removed = %v, want the flushed constraint", got)
	}

	l.RemoveConstraints(l.Identity()...)
	if l.Pending() {
		t.Error("identity constraints cannot be removed")
	}

	l.Edit(Width).Strength(cassowary.Medium).Submit()
	l.SetEdit(Left, 7, cassowary.Strong)
	edits := l.DrainEditVars()
	if len(edits) != 2 {
		t.Fatalf("got %d edits, want 2", len(edits))
	}
	if edits[0].HasValue || edits[0].Var != l.Vars().Width || edits[0].Strength != cassowary.Medium {
		t.Errorf("edit 0 = %+v", edits[0])
	}
	if !edits[1].HasValue || edits[1].Value != 7 || edits[1].Var != l.Vars().Left {
		t.Errorf("edit 1 = %+v", edits[1])
	}
	if len(l.DrainEditVars()) != 0 {
		t.Error("edits must be drained exactly once")
	}
}

func TestVarKindText(t *testing.T) {
	for _, k := range Kinds {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got VarKind
		if err := got.UnmarshalText(b); err != nil || got != k {
			t.Errorf("round trip of %v = %v, %v", k, got, err)
		}
	}
	if _, err := ParseVarKind("depth"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if k, _ := ParseVarKind("WIDTH"); k != Width {
		t.Errorf("ParseVarKind is case-insensitive, got %v", k)
	}
}

func TestEntityIDsAreUnique(t *testing.T) {
	seen := make(map[EntityID]bool)
	for range 100 {
		id := NewEntityID()
		if seen[id] || id == 0 {
			t.Fatalf("id %v reused or zero", id)
		}
		seen[id] = true
	}
}
