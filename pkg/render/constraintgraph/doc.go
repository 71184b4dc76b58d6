// Package constraintgraph draws a solver snapshot as a Graphviz diagram.
//
// Each entity is a box. A constraint that relates two or more entities
// becomes an edge from its owner to every other entity it touches,
// labelled with its operator and strength; required constraints are solid,
// non-required ones dashed. Constraints that only touch their owner are
// counted on the owner's box. Hidden entities are drawn dashed and grey.
//
//	snap, _ := solver.Snapshot()
//	dot := constraintgraph.ToDOT(snap, constraintgraph.Options{})
//	svg, err := constraintgraph.RenderSVG(dot)
//
// With [Options.Detailed] every edge carries the full constraint in
// "terms op 0" form, using entity names, which is the quickest way to see
// why two widgets end up where they do.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz] in process; no Graphviz
// installation is needed. PDF and PNG conversion goes through package
// render and needs librsvg.
package constraintgraph
