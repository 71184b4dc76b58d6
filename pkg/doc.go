// Package pkg provides the libraries behind limn, an incremental constraint
// layout engine for widget trees.
//
// # Overview
//
// Widgets declare their geometry as linear constraints over six variables
// (left, top, right, bottom, width, height). A Cassowary solver keeps every
// constraint satisfied as widgets are added, removed, hidden or dragged, and
// reports only the values that changed. The pkg directory is organized into
// three areas:
//
//  1. Solver core: [cassowary], [layout], [layout/container], [tree]
//  2. Scenes and output: [scene], [io], [render], [render/constraintgraph]
//  3. Services: [pipeline], [cache], [store], [session], [server]
//
// # Architecture
//
// The typical data flow through limn:
//
//	Scene file (TOML, YAML, JSON)
//	         ↓
//	    [scene] package (validate, build widgets and constraints)
//	         ↓
//	    [tree] package (attach widgets, containers, update cycle)
//	         ↓
//	    [layout] package (register, flush, fetch changes)
//	         ↓
//	    [cassowary] package (simplex tableau, edit variables)
//	         ↓
//	    JSON bounds, snapshots, DOT/SVG/PNG/PDF constraint graphs
//
// # Quick Start
//
// Build a two-column row by hand:
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
// Or load a scene and run it through the cached pipeline:
//
//	sc, _ := scene.Load("window.toml")
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, _ := runner.Execute(ctx, sc, pipeline.Options{
//	    Formats: []string{pipeline.FormatJSON, pipeline.FormatSVG},
//	})
//
// # Main Packages
//
// [cassowary] - The incremental simplex solver: variables, linear
// expressions, constraints with strengths, edit variables and a change feed.
//
// [layout] - Entities with six geometry variables, a builder DSL for common
// relations (alignment, containment, matching sizes) and the entity-level
// solver with register, unregister, hide, unhide, flush and fetch changes.
//
// [layout/container] - Linear and grid strategies that position children.
//
// [tree] - A widget hierarchy on top of one solver. [tree.Tree.Update]
// returns exactly the widgets whose bounds changed.
//
// [scene] - The declarative scene document and its builder.
//
// [pipeline] - Solve and render with caching, shared by the CLI and server.
//
// [server] - HTTP API with live sessions, snapshot persistence and metrics.
//
// # Testing
//
//	go test ./pkg/...
//	go test -run Example ./pkg/cassowary
//
// [cassowary]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/cassowary
// [layout]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/layout
// [layout/container]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/layout/container
// [tree]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/tree
// [tree.Tree.Update]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/tree#Tree.Update
// [scene]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/scene
// [io]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/io
// [render]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/render
// [render/constraintgraph]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/render/constraintgraph
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/store
// [session]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/session
// [server]: https://pkg.go.dev/github.com/matzehuels/limn/pkg/server
package pkg
