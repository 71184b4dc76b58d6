package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/tree"
)

// Result lists the solved bounds of a tree's widgets in pre-order.
type Result struct {
	// Scene is the hash of the scene the result was solved from, if any.
	Scene   string         `json:"scene,omitempty"`
	Widgets []WidgetResult `json:"widgets"`
}

// WidgetResult is one widget of a [Result].
type WidgetResult struct {
	Name   string    `json:"name"`
	Parent string    `json:"parent,omitempty"`
	Depth  int       `json:"depth"`
	Hidden bool      `json:"hidden,omitempty"`
	Bounds tree.Rect `json:"bounds"`
}

// NewResult collects the current bounds of every widget of t.
func NewResult(t *tree.Tree) *Result {
	r := &Result{Widgets: make([]WidgetResult, 0, t.Len())}
	t.Walk(func(w *tree.Widget, depth int) bool {
		wr := WidgetResult{
			Name:   w.Name(),
			Depth:  depth,
			Hidden: w.Hidden(),
			Bounds: w.Bounds(),
		}
		if p, ok := t.Widget(w.Parent()); ok {
			wr.Parent = p.Name()
		}
		r.Widgets = append(r.Widgets, wr)
		return true
	})
	return r
}

// Find returns the first widget named name.
func (r *Result) Find(name string) (WidgetResult, bool) {
	for _, w := range r.Widgets {
		if w.Name == name {
			return w, true
		}
	}
	return WidgetResult{}, false
}

// WriteResult encodes r as indented JSON and writes it to w.
func WriteResult(r *Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// MarshalResult returns the compact JSON encoding of r, as stored in caches.
func MarshalResult(r *Result) ([]byte, error) {
	return json.Marshal(r)
}

// ExportResult writes r to a JSON file at path.
func ExportResult(r *Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteResult(r, f)
}

// ReadResult decodes a result from r. ReadResult does not close r.
func ReadResult(r io.Reader) (*Result, error) {
	var res Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidFormat, err, "decode result")
	}
	return &res, nil
}

// ImportResult reads a result file at path.
func ImportResult(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadResult(f)
}
