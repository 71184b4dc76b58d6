// Package server exposes live layout sessions over HTTP.
//
// A client posts a scene document and gets back a session id and the solved
// bounds of every widget. It then streams edits, removals and visibility
// changes to the session and receives only the widgets whose bounds
// changed, which is exactly what it needs to redraw:
//
//	POST   /sessions                           create from a scene (JSON, TOML or YAML body)
//	GET    /sessions                           list live sessions
//	GET    /sessions/{id}                      current bounds
//	DELETE /sessions/{id}                      drop a session
//	POST   /sessions/{id}/edits                suggest values, returns changed widgets
//	DELETE /sessions/{id}/widgets/{name}       remove a widget subtree
//	POST   /sessions/{id}/widgets/{name}/hide  hide a widget
//	POST   /sessions/{id}/widgets/{name}/unhide
//	GET    /sessions/{id}/snapshot             solver snapshot
//	POST   /sessions/{id}/snapshot             persist the snapshot to the store
//	GET    /snapshots/{id}                     load a persisted snapshot
//	POST   /solve?format=svg                   solve a scene once, cached, when enabled
//	GET    /healthz                            build info
//	GET    /metrics                            Prometheus metrics, when enabled
//
// Each session owns one solver; requests to the same session are
// serialised by the session, requests to different sessions run in
// parallel.
//
// # Errors
//
// Errors are returned as {"error": {"code": ..., "message": ...}} with the
// code from package errors. Invalid input maps to 400, unknown sessions,
// widgets and snapshots to 404, expired sessions to 410 and required
// constraint conflicts to 409.
package server
