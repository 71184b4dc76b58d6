package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/pipeline"
)

var graphFormats = map[string]string{
	".dot": pipeline.FormatDOT,
	".gv":  pipeline.FormatDOT,
	".svg": pipeline.FormatSVG,
	".png": pipeline.FormatPNG,
	".pdf": pipeline.FormatPDF,
}

// graphCommand renders the constraint graph of a solved scene.
func (c *CLI) graphCommand() *cobra.Command {
	var flags solveFlags

	cmd := &cobra.Command{
		Use:   "graph <scene>",
		Short: "Render the constraint graph of a scene",
		Long: `Render the constraint graph of a scene: one node per widget and one edge per
constraint between two widgets. The output format follows the file extension
of --output (.dot, .svg, .png or .pdf). PNG and PDF need rsvg-convert.`,
		Example: `  limn graph window.toml
  limn graph window.toml -o window.pdf --detailed`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output == "" {
				flags.output = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + ".svg"
			}
			format, ok := graphFormats[strings.ToLower(filepath.Ext(flags.output))]
			if !ok {
				return apperr.New(apperr.ErrCodeInvalidFormat, "unsupported graph output %q: use .dot, .svg, .png or .pdf", flags.output)
			}

			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runSolve(ctx, args[0], []string{format}, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default <scene>.svg)")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "label edges with full constraint expressions")
	cmd.Flags().Float64Var(&flags.scale, "scale", pipeline.DefaultScale, "PNG scale factor")

	return cmd
}
