package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/shotlist/internal/output"
	"github.com/jackzampolin/shotlist/internal/pipeline"
	"github.com/jackzampolin/shotlist/internal/stages"
	"github.com/jackzampolin/shotlist/internal/svcctx"
)

var errAllFailed = errors.New("every input failed")

// stageReport renders stage outputs.
type stageReport struct {
	Stages []*pipeline.Output `json:"stages" yaml:"stages"`
}

func (r stageReport) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tFILE")
	for _, out := range r.Stages {
		for _, f := range out.Files {
			fmt.Fprintf(tw, "%s\twrote\t%s\n", out.Stage, f)
		}
		for _, f := range out.Failed {
			fmt.Fprintf(tw, "%s\tfailed\t%s (%s: %s)\n", out.Stage, f.Path, f.ErrorType, f.Error)
		}
	}
	return tw.Flush()
}

// runStage runs one stage against args and prints what it wrote.
func runStage(cmd *cobra.Command, stage pipeline.Stage, args []string, outDir string) error {
	_, cleanup, err := setupServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := stage.Run(cmd.Context(), pipeline.Input{Paths: args, OutputDir: outDir})
	if err != nil {
		return err
	}
	if err := output.Print(stageReport{Stages: []*pipeline.Output{out}}); err != nil {
		return err
	}
	if len(out.Files) == 0 && len(out.Failed) > 0 {
		return fmt.Errorf("%s: %w (%d)", stage.Name(), errAllFailed, len(out.Failed))
	}
	return nil
}

var (
	shotsCombine bool
	shotsName    string
	shotsOutDir  string
)

var shotsCmd = &cobra.Command{
	Use:   "shots <script file or dir>...",
	Short: "Generate shot lists from scripts",
	Long: `Generate a numbered shot list for each .txt or .rtf script.

Directories are searched recursively. Each script becomes
shot_lists/<stem>_shot_list.txt in the workspace; with --combine all
scripts are joined in natural order into <name>_combined_shot_list.txt.

Examples:
  shotlist shots scripts/
  shotlist shots ep1.rtf ep2.rtf --combine --name episode`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := stages.NewShots(stages.ShotsOptions{Combine: shotsCombine, Name: shotsName})
		return runStage(cmd, stage, args, shotsOutDir)
	},
}

var (
	imageryCombine    bool
	imageryName       string
	imageryCharacters string
	imageryOutDir     string
)

var imageryCmd = &cobra.Command{
	Use:   "imagery <shot list file or dir>...",
	Short: "Generate image prompts from shot lists",
	Long: `Generate image prompts for every shot of each shot list (.txt).

Character descriptions are read from characters.txt in the workspace,
or from --characters, and included in every request.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := stages.NewImagery(stages.ImageryOptions{
			Combine:    imageryCombine,
			Name:       imageryName,
			Characters: imageryCharacters,
		})
		return runStage(cmd, stage, args, imageryOutDir)
	},
}

var (
	tablesMethod string
	tablesMode   string
	tablesFormat string
	tablesOutDir string
)

var tablesCmd = &cobra.Command{
	Use:   "tables <image prompt file or dir>...",
	Short: "Convert image prompts into scene/shot/prompt CSV tables",
	Long: `Convert image prompt files (.txt) into CSV tables with Scene, Shot and
Prompt columns.

Methods:
  extract  parse the prompts locally with the marker grammar (default)
  llm      ask the model for a markdown table, or JSON with --format json

Modes:
  individual  one table per file: <stem>_prompts_table.csv
  pairs       one table per two files: <a>_<b>_prompts_table.csv
  combined    one table for all files: prompts_table.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := stages.NewTables(stages.TablesOptions{
			Method: tablesMethod,
			Mode:   tablesMode,
			Format: tablesFormat,
		})
		return runStage(cmd, stage, args, tablesOutDir)
	},
}

var runFrom string

var runCmd = &cobra.Command{
	Use:   "run <script file or dir>...",
	Short: "Run every stage from scripts to the consolidated table",
	Long: `Run shots, imagery, tables and consolidate in dependency order. Each
stage consumes the files written by the stage before it.

With --from the run starts at that stage, which reads the given paths:
  shotlist run --from imagery text_files/shot_lists`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := setupServices(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		reg := pipeline.NewRegistry()
		err = stages.Register(reg,
			stages.ShotsOptions{Combine: shotsCombine, Name: shotsName},
			stages.ImageryOptions{Combine: shotsCombine, Name: shotsName, Characters: imageryCharacters},
			stages.TablesOptions{Method: tablesMethod, Mode: tablesMode, Format: tablesFormat},
			stages.ConsolidateOptions{},
		)
		if err != nil {
			return err
		}

		in := pipeline.Input{Paths: args}
		logger := svcctx.LoggerFrom(cmd.Context())
		var outputs []*pipeline.Output
		if runFrom != "" {
			outputs, err = reg.RunFrom(cmd.Context(), runFrom, in, logger)
		} else {
			outputs, err = reg.Run(cmd.Context(), in, logger)
		}
		if perr := output.Print(stageReport{Stages: outputs}); perr != nil {
			svc.Logger.Warn("failed to print report", "error", perr)
		}
		return err
	},
}

func init() {
	shotsCmd.Flags().BoolVar(&shotsCombine, "combine", false, "combine all scripts into one shot list")
	shotsCmd.Flags().StringVar(&shotsName, "name", "", "name of the combined output (default: input name)")
	shotsCmd.Flags().StringVar(&shotsOutDir, "out-dir", "", "output directory (default: <workspace>/shot_lists)")

	imageryCmd.Flags().BoolVar(&imageryCombine, "combine", false, "combine all shot lists into one request")
	imageryCmd.Flags().StringVar(&imageryName, "name", "", "name of the combined output (default: input name)")
	imageryCmd.Flags().StringVar(&imageryCharacters, "characters", "", "character descriptions file (default: <workspace>/characters.txt)")
	imageryCmd.Flags().StringVar(&imageryOutDir, "out-dir", "", "output directory (default: <workspace>/image_prompts)")

	tablesCmd.Flags().StringVar(&tablesMethod, "method", "", "extract or llm (default from config)")
	tablesCmd.Flags().StringVar(&tablesMode, "mode", "", "individual, pairs or combined (default from config)")
	tablesCmd.Flags().StringVar(&tablesFormat, "format", "", "markdown or json, for --method llm")
	tablesCmd.Flags().StringVar(&tablesOutDir, "out-dir", "", "output directory (default: <workspace>/tables)")

	runCmd.Flags().BoolVar(&shotsCombine, "combine", false, "combine all scripts into one shot list")
	runCmd.Flags().StringVar(&shotsName, "name", "", "name of the combined output (default: input name)")
	runCmd.Flags().StringVar(&imageryCharacters, "characters", "", "character descriptions file")
	runCmd.Flags().StringVar(&tablesMethod, "method", "", "tables method: extract or llm")
	runCmd.Flags().StringVar(&tablesMode, "mode", "", "tables mode: individual, pairs or combined")
	runCmd.Flags().StringVar(&tablesFormat, "format", "", "tables format for --method llm: markdown or json")
	runCmd.Flags().StringVar(&runFrom, "from", "", "start at this stage: shots, imagery, tables or consolidate")

	rootCmd.AddCommand(shotsCmd, imageryCmd, tablesCmd, runCmd)
}
