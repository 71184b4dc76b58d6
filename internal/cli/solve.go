package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/pipeline"
	"github.com/matzehuels/limn/pkg/scene"
)

// solveFlags holds the flags shared by solve and graph.
type solveFlags struct {
	output   string
	formats  string
	edits    []string
	detailed bool
	scale    float64
	noCache  bool
	refresh  bool
}

func (f *solveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.edits, "edit", "e", nil, "suggest a value, e.g. window.width=640 or nav.left=10:weak (repeatable)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "solve again even if a cached result exists")
}

// options converts the flags into pipeline options.
func (f *solveFlags) options(formats []string) (pipeline.Options, error) {
	edits, err := parseEdits(f.edits)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Edits:    edits,
		Formats:  formats,
		Detailed: f.detailed,
		Scale:    f.scale,
		Refresh:  f.refresh,
	}, nil
}

// solveCommand creates the solve command.
func (c *CLI) solveCommand() *cobra.Command {
	var flags solveFlags

	cmd := &cobra.Command{
		Use:   "solve <scene>",
		Short: "Solve a scene and print the widget bounds",
		Long: `Solve a scene file (TOML, YAML or JSON) and print the bounds of every widget.

With --output the results are written to files instead. When more than one
format is requested, the extension of --output is replaced per format.`,
		Example: `  limn solve window.toml
  limn solve window.toml -e window.width=640
  limn solve window.yaml -f json,svg -o out/window`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			formats := []string{pipeline.FormatJSON}
			if flags.output != "" {
				formats = parseFormats(flags.formats)
			}
			return c.runSolve(ctx, args[0], formats, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (stdout table if empty)")
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "", "output formats: json,snapshot,dot,svg,png,pdf (with --output)")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "label graph edges with full constraint expressions")
	cmd.Flags().Float64Var(&flags.scale, "scale", pipeline.DefaultScale, "PNG scale factor")

	return cmd
}

// runSolve executes the pipeline for one scene file and reports the result.
func (c *CLI) runSolve(ctx context.Context, path string, formats []string, flags solveFlags) error {
	logger := loggerFromContext(ctx)

	sc, err := scene.Load(path)
	if err != nil {
		return err
	}
	opts, err := flags.options(formats)
	if err != nil {
		return err
	}
	opts.Logger = logger

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	var spin *Spinner
	if slices.Contains(opts.Formats, pipeline.FormatPNG) || slices.Contains(opts.Formats, pipeline.FormatPDF) {
		spin = newSpinnerWithContext(ctx, "Converting with rsvg-convert...")
		spin.Start()
	}
	res, err := runner.Execute(ctx, sc, opts)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Solved %s", sc.Name))

	if res.Conflict != nil {
		printWarning("%s", apperr.UserMessage(res.Conflict))
	}

	if flags.output == "" {
		fmt.Println(boundsTable(res.Layout.Widgets))
		printStats(res.Stats.Widgets, res.Stats.Constraints, res.CacheInfo.SolveHit)
		return nil
	}

	paths, err := writeArtifacts(flags.output, opts.Formats, res.Artifacts)
	if err != nil {
		return err
	}
	printSuccess("Solved %s", sc.Name)
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats.Widgets, res.Stats.Constraints, res.CacheInfo.SolveHit && res.CacheInfo.RenderHit)
	return nil
}

// writeArtifacts writes one file per format. A single format is written to
// output as given; several formats share the base name of output.
func writeArtifacts(output string, formats []string, artifacts map[string][]byte) ([]string, error) {
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	base := strings.TrimSuffix(output, filepath.Ext(output))

	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := output
		if len(formats) > 1 {
			path = base + "." + extension(f)
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func extension(format string) string {
	if format == pipeline.FormatSnapshot {
		return "snapshot.json"
	}
	return format
}

// parseEdits parses "widget.side=value[:strength]" flags.
func parseEdits(raw []string) ([]scene.Edit, error) {
	edits := make([]scene.Edit, 0, len(raw))
	for _, s := range raw {
		target, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "edit %q: want widget.side=value", s)
		}
		widget, side, ok := strings.Cut(target, ".")
		if !ok || widget == "" || side == "" {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "edit %q: want widget.side=value", s)
		}
		value, strength, _ := strings.Cut(value, ":")
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "edit %q: bad value", s)
		}
		edits = append(edits, scene.Edit{Widget: widget, Side: side, Value: v, Strength: strength})
	}
	return edits, nil
}

// kindsCommand lists the constraint kinds a scene may use.
func (c *CLI) kindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the constraint kinds available in scene files",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range scene.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}
