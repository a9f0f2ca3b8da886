package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/shotlist/internal/config"
	"github.com/jackzampolin/shotlist/internal/consolidate"
	"github.com/jackzampolin/shotlist/internal/output"
	"github.com/jackzampolin/shotlist/internal/pipeline"
	"github.com/jackzampolin/shotlist/internal/stages"
)

var (
	consolidateOut          string
	consolidateRecursive    bool
	consolidateSourceColumn string
	consolidateFormats      []string
	consolidateWatch        bool
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate [dir or file]...",
	Short: "Merge prompt tables into one consolidated CSV",
	Long: `Merge every prompt table in a directory into one CSV.

Sources are read in natural order of their names (scene2 before scene10).
Columns are the union of all source columns in first-seen order; rows keep
their source order. A source that cannot be read is reported and skipped.

With --watch the table is rebuilt whenever a source changes, and whenever
the config file changes (for example the extraction grammar).

Examples:
  shotlist consolidate                           # <workspace>/tables -> <workspace>/consolidated.csv
  shotlist consolidate tables/ --out all.csv --source-column source
  shotlist consolidate tables/ --format csv,text --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := setupServices(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		ctx := cmd.Context()

		stage := stages.NewConsolidate(stages.ConsolidateOptions{
			Output:       consolidateOut,
			Recursive:    consolidateRecursive,
			SourceColumn: consolidateSourceColumn,
			Formats:      consolidateFormats,
		})
		rebuild := func(ctx context.Context) error {
			if _, err := stage.Run(ctx, pipeline.Input{Paths: args}); err != nil {
				return err
			}
			return output.Print(stage.Result().Manifest)
		}

		if !consolidateWatch {
			return rebuild(ctx)
		}

		if err := rebuild(ctx); err != nil {
			svc.Logger.Warn("initial consolidation failed", "error", err)
		}

		dir := svc.Home.TablesDir()
		if len(args) > 0 {
			dir = args[0]
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				return fmt.Errorf("--watch needs a directory, got file %s", dir)
			}
		}
		out, err := stage.OutputPath(ctx)
		if err != nil {
			return err
		}
		w := consolidate.NewWatcher(dir, rebuild, svc.Logger)
		w.Exclude = []string{out}
		if ms := svc.Config.Get().Consolidate.DebounceMS; ms > 0 {
			w.Debounce = time.Duration(ms) * time.Millisecond
		}

		if svc.Config.ConfigFile() != "" {
			svc.Config.OnChange(func(*config.Config) {
				svc.Logger.Info("config changed, rebuilding")
				w.Trigger()
			})
			svc.Config.WatchConfig()
		}

		return w.Run(ctx)
	},
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateOut, "out", "", "output file; a bare name is placed in the workspace (default: consolidated.csv)")
	consolidateCmd.Flags().BoolVar(&consolidateRecursive, "recursive", false, "include subdirectories")
	consolidateCmd.Flags().StringVar(&consolidateSourceColumn, "source-column", "", "add a column with each row's source name")
	consolidateCmd.Flags().StringSliceVar(&consolidateFormats, "format", nil, "source formats: csv, text (default from config)")
	consolidateCmd.Flags().BoolVar(&consolidateWatch, "watch", false, "rebuild when sources or config change")

	rootCmd.AddCommand(consolidateCmd)
}
