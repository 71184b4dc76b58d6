package constraintgraph

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/limn/pkg/cassowary"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/render"
)

// Options configures diagram generation.
type Options struct {
	// Detailed labels edges with the whole constraint instead of only its
	// operator and strength.
	Detailed bool
	// RankDir is the Graphviz rank direction. Empty means "TB".
	RankDir string
}

// ToDOT converts a snapshot to Graphviz DOT source.
func ToDOT(snap *layout.Snapshot, opts Options) string {
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "TB"
	}
	names := make(map[layout.EntityID]string, len(snap.Entities))
	for _, e := range snap.Entities {
		names[e.ID] = e.Name
	}

	local := make(map[layout.EntityID]int)
	type edge struct {
		from, to layout.EntityID
		label    string
		required bool
	}
	var edges []edge
	for _, c := range snap.Constraints {
		others := touched(c)
		others = slices.DeleteFunc(others, func(id layout.EntityID) bool { return id == c.Owner })
		if len(others) == 0 {
			local[c.Owner]++
			continue
		}
		st := cassowary.Strength(c.Strength)
		label := c.Op + " " + st.String()
		if opts.Detailed {
			label = formatConstraint(c, names)
		}
		for _, to := range others {
			edges = append(edges, edge{from: c.Owner, to: to, label: label, required: st.IsRequired()})
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph constraints {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("\n")

	for _, e := range snap.Entities {
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeID(e.ID), strings.Join(nodeAttrs(e, local[e.ID]), ", "))
	}
	buf.WriteString("\n")
	for _, e := range edges {
		attrs := []string{fmt.Sprintf("label=%q", e.label)}
		if !e.required {
			attrs = append(attrs, "style=dashed", "color=grey40")
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", nodeID(e.from), nodeID(e.to), strings.Join(attrs, ", "))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(id layout.EntityID) string {
	return "e" + strconv.FormatUint(uint64(id), 10)
}

func nodeAttrs(e layout.EntitySnapshot, local int) []string {
	label := e.Name
	if local > 0 {
		label += fmt.Sprintf("\n%d local", local)
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if e.Hidden {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

// touched returns the distinct entities a constraint references, in order
// of first appearance.
func touched(c layout.ConstraintSnapshot) []layout.EntityID {
	var out []layout.EntityID
	for _, t := range c.Terms {
		if !slices.Contains(out, t.Var.Entity) {
			out = append(out, t.Var.Entity)
		}
	}
	return out
}

func formatConstraint(c layout.ConstraintSnapshot, names map[layout.EntityID]string) string {
	var b strings.Builder
	for i, t := range c.Terms {
		coeff := t.Coefficient
		switch {
		case i == 0 && coeff < 0:
			b.WriteString("-")
		case i > 0 && coeff < 0:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		if a := abs(coeff); a != 1 {
			b.WriteString(strconv.FormatFloat(a, 'g', -1, 64))
			b.WriteString("*")
		}
		b.WriteString(varName(t.Var, names))
	}
	if c.Constant != 0 {
		if c.Constant < 0 {
			b.WriteString(" - ")
		} else {
			b.WriteString(" + ")
		}
		b.WriteString(strconv.FormatFloat(abs(c.Constant), 'g', -1, 64))
	}
	fmt.Fprintf(&b, " %s 0 (%s)", c.Op, cassowary.Strength(c.Strength))
	return b.String()
}

func varName(v layout.VarRef, names map[layout.EntityID]string) string {
	name := names[v.Entity]
	if name == "" {
		name = v.Entity.String()
	}
	if v.Aux > 0 {
		name += "#" + strconv.Itoa(v.Aux)
	}
	return name + "." + v.Kind.String()
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// RenderSVG renders DOT source to SVG with an in-process Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// RenderPDF renders DOT source to PDF through [RenderSVG].
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders DOT source to PNG through [RenderSVG].
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
