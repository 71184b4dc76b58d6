package cli

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperr "github.com/matzehuels/limn/pkg/errors"
	limnio "github.com/matzehuels/limn/pkg/io"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/pipeline"
	"github.com/matzehuels/limn/pkg/scene"
	"github.com/matzehuels/limn/pkg/store"
)

const rowScene = `name = "row"

[[widgets]]
name = "window"
layout = "horizontal"
spacing = 10
constraints = [
  { kind = "top_left", args = [0, 0] },
  { kind = "size", args = [300, 100] },
]

[[widgets]]
name = "nav"
parent = "window"
constraints = [{ kind = "size", args = [100, 80] }]

[[widgets]]
name = "body"
parent = "window"
constraints = [
  { kind = "height", args = [80] },
  { kind = "match_width", target = "nav" },
]
`

// setup isolates the XDG directories and writes the row scene.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	path := filepath.Join(dir, "row.toml")
	if err := os.WriteFile(path, []byte(rowScene), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, stdout io.Writer, args ...string) error {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	if stdout != nil {
		root.SetOut(stdout)
	}
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestRootCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	for _, name := range []string{"solve", "graph", "drag", "snapshot", "serve", "kinds", "cache", "completion"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Errorf("missing subcommand %q: %v", name, err)
		}
	}
}

func TestKindsCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(t, &out, "kinds"); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"align_left", "bound_by", "size"} {
		if !strings.Contains(out.String(), k+"\n") {
			t.Errorf("kinds output missing %q", k)
		}
	}
}

func TestSolveWritesArtifacts(t *testing.T) {
	path := setup(t)
	out := filepath.Join(t.TempDir(), "out", "row")

	if err := run(t, nil, "solve", path, "-f", "json,dot", "-o", out, "-e", "window.width=500:weak"); err != nil {
		t.Fatalf("solve: %v", err)
	}

	res, err := limnio.ImportResult(out + ".json")
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	body, ok := res.Find("body")
	if !ok {
		t.Fatal("body missing from result")
	}
	if math.Abs(body.Bounds.Left-120) > 1e-6 {
		t.Errorf("body.left = %v, want 120", body.Bounds.Left)
	}

	dot, err := os.ReadFile(out + ".dot")
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.Contains(string(dot), "digraph") {
		t.Errorf("dot output looks wrong:\n%s", dot)
	}

	// Second run is served from the cache.
	if err := run(t, nil, "solve", path); err != nil {
		t.Fatalf("cached solve: %v", err)
	}
}

func TestSolveErrors(t *testing.T) {
	path := setup(t)

	err := run(t, nil, "solve", path, "-e", "window.width")
	if !apperr.Is(err, apperr.ErrCodeInvalidInput) {
		t.Errorf("malformed edit: got %v", err)
	}
	err = run(t, nil, "solve", path, "-e", "ghost.left=1")
	if !apperr.Is(err, apperr.ErrCodeInvalidInput) {
		t.Errorf("unknown widget: got %v", err)
	}
	err = run(t, nil, "solve", path, "-f", "gif", "-o", filepath.Join(t.TempDir(), "x"))
	if err == nil {
		t.Error("unknown format should fail")
	}
	err = run(t, nil, "graph", path, "-o", filepath.Join(t.TempDir(), "x.jpg"))
	if !apperr.Is(err, apperr.ErrCodeInvalidFormat) {
		t.Errorf("graph extension: got %v", err)
	}
}

func TestParseEdits(t *testing.T) {
	edits, err := parseEdits([]string{"nav.left=10", "window.width=640.5:weak"})
	if err != nil {
		t.Fatal(err)
	}
	if len(edits) != 2 {
		t.Fatalf("got %d edits", len(edits))
	}
	if e := edits[0]; e.Widget != "nav" || e.Side != "left" || e.Value != 10 || e.Strength != "" {
		t.Errorf("edit 0 = %+v", e)
	}
	if e := edits[1]; e.Widget != "window" || e.Side != "width" || e.Value != 640.5 || e.Strength != "weak" {
		t.Errorf("edit 1 = %+v", e)
	}

	for _, bad := range []string{"nav=1", ".left=1", "nav.left=abc", "nav.left"} {
		if _, err := parseEdits([]string{bad}); err == nil {
			t.Errorf("parseEdits(%q) should fail", bad)
		}
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	path := setup(t)

	if err := run(t, nil, "snapshot", "save", path, "--name", "first"); err != nil {
		t.Fatalf("save: %v", err)
	}
	dir, err := snapshotDir()
	if err != nil {
		t.Fatal(err)
	}
	fs, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	recs, err := fs.List(context.Background())
	if err != nil || len(recs) != 1 {
		t.Fatalf("list: %v, %d records", err, len(recs))
	}
	id := recs[0].ID
	if recs[0].Name != "first" {
		t.Errorf("name = %q, want first", recs[0].Name)
	}

	var raw bytes.Buffer
	if err := run(t, &raw, "snapshot", "show", id, "--json"); err != nil {
		t.Fatalf("show --json: %v", err)
	}
	snap, err := limnio.ReadSnapshot(&raw)
	if err != nil {
		t.Fatalf("show output is not a snapshot: %v", err)
	}
	if len(snap.Entities) != 3 {
		t.Errorf("entities = %d, want 3", len(snap.Entities))
	}
	if err := run(t, nil, "snapshot", "show", id); err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := run(t, nil, "snapshot", "list"); err != nil {
		t.Fatalf("list: %v", err)
	}

	file := filepath.Join(t.TempDir(), "row.snapshot.json")
	if err := run(t, nil, "snapshot", "export", id, "-o", file); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := run(t, nil, "snapshot", "import", file); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := run(t, nil, "snapshot", "delete", id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	recs, _ = fs.List(context.Background())
	if len(recs) != 1 || recs[0].Name != "row" {
		t.Errorf("after import and delete: %+v", recs)
	}

	err = run(t, nil, "snapshot", "show", id)
	if !apperr.Is(err, apperr.ErrCodeSnapshotNotFound) {
		t.Errorf("show deleted: got %v", err)
	}
}

func TestRestoreBounds(t *testing.T) {
	path := setup(t)
	c := New(io.Discard, LogInfo)
	runner, err := c.newRunner(true)
	if err != nil {
		t.Fatal(err)
	}
	sc, snap := mustSolve(t, runner, path)
	widgets, err := restoreBounds(snap, c.Logger)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(widgets) != len(sc.Widgets) {
		t.Fatalf("got %d widgets, want %d", len(widgets), len(sc.Widgets))
	}
	for _, w := range widgets {
		if w.Name == "nav" && math.Abs(w.Bounds.Right-110) > 1e-6 {
			t.Errorf("nav.right = %v, want 110", w.Bounds.Right)
		}
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	c := New(io.Discard, LogInfo)
	err := c.runServe(withLogger(ctx, c.Logger), serveOptions{
		addr:       "127.0.0.1:0",
		sessionTTL: time.Minute,
		noCache:    true,
		noStore:    true,
	})
	if err != nil {
		t.Errorf("runServe: %v", err)
	}
}

func mustSolve(t *testing.T, runner *pipeline.Runner, path string) (*scene.Scene, *layout.Snapshot) {
	t.Helper()
	sc, err := scene.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Execute(context.Background(), sc, pipeline.Options{Formats: []string{pipeline.FormatSnapshot}})
	if err != nil {
		t.Fatal(err)
	}
	return sc, res.Snapshot
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		var out bytes.Buffer
		if err := run(t, &out, "completion", shell); err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		if !strings.Contains(out.String(), "limn") {
			t.Errorf("%s completion does not mention limn", shell)
		}
	}
	if err := run(t, nil, "completion", "tcsh"); err == nil {
		t.Error("unknown shell should fail")
	}
}
