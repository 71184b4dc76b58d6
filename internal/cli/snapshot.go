package cli

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/limn/pkg/cache"
	limnio "github.com/matzehuels/limn/pkg/io"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/pipeline"
	"github.com/matzehuels/limn/pkg/scene"
	"github.com/matzehuels/limn/pkg/store"
	"github.com/matzehuels/limn/pkg/tree"
)

// snapshotCommand groups the snapshot store subcommands.
func (c *CLI) snapshotCommand() *cobra.Command {
	var mongoURI string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and inspect solver snapshots",
		Long: `Snapshots capture the full solver state of a solved scene: entities,
constraints and edit suggestions. They are kept in a local directory, or in
MongoDB with --mongo.`,
	}
	cmd.PersistentFlags().StringVar(&mongoURI, "mongo", "", "MongoDB URI (default: local snapshot directory)")

	open := func(ctx context.Context) (store.Store, error) {
		return openStore(ctx, mongoURI)
	}

	cmd.AddCommand(c.snapshotSaveCommand(open))
	cmd.AddCommand(c.snapshotListCommand(open))
	cmd.AddCommand(c.snapshotShowCommand(open))
	cmd.AddCommand(c.snapshotExportCommand(open))
	cmd.AddCommand(c.snapshotImportCommand(open))
	cmd.AddCommand(c.snapshotDeleteCommand(open))

	return cmd
}

type storeOpener func(ctx context.Context) (store.Store, error)

// openStore opens MongoDB when uri is set and the local directory otherwise.
func openStore(ctx context.Context, uri string) (store.Store, error) {
	if uri == "" {
		dir, err := snapshotDir()
		if err != nil {
			return nil, fmt.Errorf("get snapshot dir: %w", err)
		}
		return store.NewFileStore(dir)
	}
	spin := newSpinnerWithContext(ctx, "Connecting to MongoDB...")
	spin.Start()
	defer spin.Stop()
	return store.NewMongoStore(ctx, store.MongoConfig{URI: uri})
}

func (c *CLI) snapshotSaveCommand(open storeOpener) *cobra.Command {
	var (
		flags solveFlags
		name  string
	)

	cmd := &cobra.Command{
		Use:               "save <scene>",
		Short:             "Solve a scene and store its snapshot",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sc, err := scene.Load(args[0])
			if err != nil {
				return err
			}
			opts, err := flags.options([]string{pipeline.FormatSnapshot})
			if err != nil {
				return err
			}
			opts.Logger = c.Logger

			runner, err := c.newRunner(flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()
			res, err := runner.Execute(ctx, sc, opts)
			if err != nil {
				return err
			}
			if res.Conflict != nil {
				printWarning("saving a snapshot with conflicting constraints")
			}

			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			rec := store.NewRecord(cmp.Or(name, sc.Name), res.SceneHash, res.Snapshot)
			if err := s.Save(ctx, rec); err != nil {
				return err
			}
			printSuccess("Saved snapshot %s", StyleNumber.Render(rec.ID))
			printStats(len(res.Snapshot.Entities), len(res.Snapshot.Constraints), res.CacheInfo.SolveHit)
			printNextStep("Inspect it", "limn snapshot show "+rec.ID)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "record name (default: scene name)")
	return cmd
}

func (c *CLI) snapshotListCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			recs, err := s.List(ctx)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("No snapshots stored")
				return nil
			}
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []string{r.ID, r.Name, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), cache.ShortHash(r.Scene)})
			}
			fmt.Println(table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(StyleDim).
				Headers("ID", "NAME", "CREATED", "SCENE").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return styleHeader
					}
					return styleCell
				}).
				Render())
			return nil
		},
	}
}

func (c *CLI) snapshotShowCommand(open storeOpener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Restore a snapshot and print the solved bounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			rec, err := s.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return limnio.WriteSnapshot(rec.Snapshot, cmd.OutOrStdout())
			}

			widgets, err := restoreBounds(rec.Snapshot, c.Logger)
			if err != nil {
				printWarning("%v", err)
			}
			printKeyValue("Name", rec.Name)
			printKeyValue("Created", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			printKeyValue("Scene", cache.ShortHash(rec.Scene))
			fmt.Println(boundsTable(widgets))
			printStats(len(rec.Snapshot.Entities), len(rec.Snapshot.Constraints), true)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot")
	return cmd
}

func (c *CLI) snapshotExportCommand(open storeOpener) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a stored snapshot to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			rec, err := s.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = rec.ID + ".snapshot.json"
			}
			if err := limnio.ExportSnapshot(rec.Snapshot, output); err != nil {
				return err
			}
			printSuccess("Exported %s", rec.Name)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <id>.snapshot.json)")
	return cmd
}

func (c *CLI) snapshotImportCommand(open storeOpener) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := limnio.ImportSnapshot(args[0])
			if err != nil {
				return err
			}
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			base := strings.TrimSuffix(filepath.Base(args[0]), ".json")
			rec := store.NewRecord(cmp.Or(name, strings.TrimSuffix(base, ".snapshot")), "", snap)
			if err := s.Save(ctx, rec); err != nil {
				return err
			}
			printSuccess("Imported snapshot %s", StyleNumber.Render(rec.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "record name (default: file name)")
	return cmd
}

func (c *CLI) snapshotDeleteCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)
			if err := s.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted snapshot %s", args[0])
			return nil
		},
	}
}

// restoreBounds rebuilds a solver from snap and reads back every entity's
// bounds in snapshot order. Conflicts are reported after the values.
func restoreBounds(snap *layout.Snapshot, logger *log.Logger) ([]limnio.WidgetResult, error) {
	r, restoreErr := layout.Restore(snap, layout.WithLogger(logger))
	if r == nil {
		return nil, restoreErr
	}
	bounds := make(map[layout.EntityID]*tree.Rect, len(r.Layouts))
	for _, ch := range r.Solver.FetchChanges() {
		b := bounds[ch.Entity]
		if b == nil {
			b = &tree.Rect{}
			bounds[ch.Entity] = b
		}
		switch ch.Kind {
		case layout.Left:
			b.Left = ch.Value
		case layout.Top:
			b.Top = ch.Value
		case layout.Right:
			b.Right = ch.Value
		case layout.Bottom:
			b.Bottom = ch.Value
		case layout.Width:
			b.Width = ch.Value
		case layout.Height:
			b.Height = ch.Value
		}
	}

	out := make([]limnio.WidgetResult, 0, len(snap.Entities))
	for _, es := range snap.Entities {
		w := limnio.WidgetResult{Name: es.Name, Hidden: es.Hidden}
		if b := bounds[r.Layouts[es.ID].ID()]; b != nil {
			w.Bounds = *b
		}
		out = append(out, w)
	}
	return out, restoreErr
}
