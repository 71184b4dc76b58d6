package pipeline

import (
	"bytes"
	"context"
	"fmt"

	limnio "github.com/matzehuels/limn/pkg/io"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/render/constraintgraph"
)

// Render generates the requested artifacts from a solved layout and its
// snapshot.
func Render(ctx context.Context, res *limnio.Result, snap *layout.Snapshot, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	graphOpts := constraintgraph.Options{Detailed: opts.Detailed}

	var dot string
	for _, format := range opts.Formats {
		if dot == "" && format != FormatJSON && format != FormatSnapshot {
			dot = constraintgraph.ToDOT(snap, graphOpts)
		}

		var data []byte
		var err error
		switch format {
		case FormatJSON:
			var buf bytes.Buffer
			err = limnio.WriteResult(res, &buf)
			data = buf.Bytes()
		case FormatSnapshot:
			var buf bytes.Buffer
			err = limnio.WriteSnapshot(snap, &buf)
			data = buf.Bytes()
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = constraintgraph.RenderSVG(dot)
		case FormatPNG:
			data, err = constraintgraph.RenderPNG(ctx, dot, opts.Scale)
		case FormatPDF:
			data, err = constraintgraph.RenderPDF(ctx, dot)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
