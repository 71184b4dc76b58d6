// Package io provides JSON import and export for layout snapshots and solved
// results.
//
// # Overview
//
// Two documents leave the process:
//
//   - Snapshots ([layout.Snapshot]) capture a solver's entities, constraints
//     and edit variables. Restoring a snapshot into a fresh solver yields the
//     same solved values.
//   - Results ([Result]) list the solved bounds of every widget of a tree in
//     pre-order. They are what `limn solve -o` writes and what the cache
//     stores.
//
// # Snapshot Format
//
//	{
//	  "entities": [{"id": 1, "name": "window"}, {"id": 2, "name": "grid", "aux": 3}],
//	  "constraints": [
//	    {"owner": 1, "terms": [{"var": {"entity": 1, "kind": "width"}, "coefficient": 1}],
//	     "constant": -800, "op": "==", "strength": 1001001000}
//	  ],
//	  "edits": [{"var": {"entity": 2, "kind": "left"}, "strength": 1000000, "value": 40, "has_value": true}]
//	}
//
// Variables are referenced by owning entity and side. Helper variable sets
// (grid rows and columns) are referenced with a 1-based "aux" index.
//
// # Validation
//
// [ReadSnapshot] rejects documents that reference unknown entities or helper
// sets, use an unknown operator, or carry a non-finite or non-positive
// strength. Errors carry the INVALID_FORMAT code from package errors.
//
// # Concurrency
//
// All functions are safe for concurrent use on distinct values.
package io
