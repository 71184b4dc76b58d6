package layout

import "github.com/matzehuels/limn/pkg/cassowary"

// Names maps variables to human-readable labels for diagnostics. Each
// [Solver] owns one, so solvers never share or leak names.
type Names struct {
	labels map[*cassowary.Variable]string
}

// NewNames returns an empty registry.
func NewNames() *Names {
	return &Names{labels: make(map[*cassowary.Variable]string)}
}

// Register labels every variable of vs as "<name>.<kind>".
func (n *Names) Register(vs *Vars, name string) {
	for i, v := range vs.All() {
		n.labels[v] = name + "." + Kinds[i].String()
	}
}

// Set labels one variable.
func (n *Names) Set(v *cassowary.Variable, label string) {
	n.labels[v] = label
}

// Name returns the label of v, falling back to the variable's own name.
func (n *Names) Name(v *cassowary.Variable) string {
	if s, ok := n.labels[v]; ok {
		return s
	}
	return v.String()
}

// Forget drops the label of v.
func (n *Names) Forget(v *cassowary.Variable) {
	delete(n.labels, v)
}

// Len returns the number of labelled variables.
func (n *Names) Len() int { return len(n.labels) }
