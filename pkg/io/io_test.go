package io_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/limn/pkg/cassowary"
	apperr "github.com/matzehuels/limn/pkg/errors"
	limnio "github.com/matzehuels/limn/pkg/io"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/layout/container"
	"github.com/matzehuels/limn/pkg/tree"
)

func sampleTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New()
	root := tree.NewWidget("window")
	root.Layout().Add(layout.TopLeft(0, 0), layout.Size(300, 120))
	require.NoError(t, tr.SetRoot(root))
	require.NoError(t, tr.SetLinear(root.ID(), container.Horizontal, 10))

	for _, n := range []string{"nav", "body"} {
		w := tree.NewWidget(n)
		w.Layout().Add(layout.FixedWidth(100), layout.FixedHeight(100))
		require.NoError(t, tr.AddChild(root.ID(), w))
	}
	grid := tree.NewWidget("tiles")
	grid.Layout().Add(layout.FixedWidth(60), layout.FixedHeight(100))
	require.NoError(t, tr.AddChild(root.ID(), grid))
	require.NoError(t, tr.SetGrid(grid.ID(), 2))

	body, _ := tr.Find("body")
	require.NoError(t, tr.Suggest(body.ID(), layout.Width, 100, cassowary.Medium))

	_, err := tr.Update()
	require.NoError(t, err)
	return tr
}

func TestSnapshotRoundTrip(t *testing.T) {
	tr := sampleTree(t)
	snap, err := tr.Solver().Snapshot()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, limnio.WriteSnapshot(snap, &buf))
	got, err := limnio.ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	restored, err := layout.Restore(got)
	require.NoError(t, err)
	values := make(map[layout.EntityID]map[layout.VarKind]float64)
	for _, ch := range restored.Solver.FetchChanges() {
		if values[ch.Entity] == nil {
			values[ch.Entity] = make(map[layout.VarKind]float64)
		}
		values[ch.Entity][ch.Kind] = ch.Value
	}

	for _, es := range snap.Entities {
		w, ok := tr.Widget(es.ID)
		require.True(t, ok)
		l := restored.Layouts[es.ID]
		for _, k := range layout.Kinds {
			assert.InDelta(t, w.Bounds().Get(k), values[l.ID()][k], 1e-6, "%s.%s", es.Name, k)
		}
	}
}

func TestExportImportSnapshot(t *testing.T) {
	snap, err := sampleTree(t).Solver().Snapshot()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, limnio.ExportSnapshot(snap, path))
	got, err := limnio.ImportSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, got.Entities, 4)

	_, err = limnio.ImportSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestReadSnapshotRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"entities": [`},
		{"unknown kind", `{"entities":[{"id":1,"name":"a"}],"constraints":[{"owner":1,"terms":[{"var":{"entity":1,"kind":"depth"},"coefficient":1}],"op":"==","strength":1}]}`},
		{"duplicate entity", `{"entities":[{"id":1,"name":"a"},{"id":1,"name":"b"}],"constraints":[]}`},
		{"unknown owner", `{"entities":[{"id":1,"name":"a"}],"constraints":[{"owner":2,"terms":[],"op":"==","strength":1}]}`},
		{"unknown entity", `{"entities":[{"id":1,"name":"a"}],"constraints":[{"owner":1,"terms":[{"var":{"entity":9,"kind":"left"},"coefficient":1}],"op":"==","strength":1}]}`},
		{"missing aux", `{"entities":[{"id":1,"name":"a"}],"constraints":[{"owner":1,"terms":[{"var":{"entity":1,"aux":1,"kind":"left"},"coefficient":1}],"op":"==","strength":1}]}`},
		{"bad operator", `{"entities":[{"id":1,"name":"a"}],"constraints":[{"owner":1,"terms":[],"op":"<","strength":1}]}`},
		{"zero strength", `{"entities":[{"id":1,"name":"a"}],"constraints":[{"owner":1,"terms":[],"op":"==","strength":0}]}`},
		{"bad edit", `{"entities":[{"id":1,"name":"a"}],"constraints":[],"edits":[{"var":{"entity":3,"kind":"left"},"strength":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := limnio.ReadSnapshot(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.ErrCodeInvalidFormat), "got %v", err)
		})
	}
}

func TestResult(t *testing.T) {
	tr := sampleTree(t)
	res := limnio.NewResult(tr)
	require.Len(t, res.Widgets, 4)
	assert.Equal(t, "window", res.Widgets[0].Name)
	assert.Equal(t, 0, res.Widgets[0].Depth)

	body, ok := res.Find("body")
	require.True(t, ok)
	assert.Equal(t, "window", body.Parent)
	assert.Equal(t, 1, body.Depth)
	assert.InDelta(t, 120, body.Bounds.Left, 1e-6)
	assert.InDelta(t, 220, body.Bounds.Right, 1e-6)

	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, limnio.ExportResult(res, path))
	got, err := limnio.ImportResult(path)
	require.NoError(t, err)
	assert.Equal(t, res, got)

	raw, err := limnio.MarshalResult(res)
	require.NoError(t, err)
	again, err := limnio.ReadResult(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, res, again)

	_, err = limnio.ReadResult(strings.NewReader("nope"))
	assert.True(t, apperr.Is(err, apperr.ErrCodeInvalidFormat))
}
