package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/shotlist/internal/output"
	"github.com/jackzampolin/shotlist/internal/prompts"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List and export the prompts sent to the model",
	Long: `Every prompt can be overridden by a file named <key>.tmpl in the prompts
directory (prompts_dir in config, default <workspace>/prompts).`,
}

// promptList renders resolved prompts without their text.
type promptList struct {
	Prompts []*prompts.ResolvedPrompt `json:"prompts" yaml:"prompts"`
}

func (l promptList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSOURCE\tHASH\tVARIABLES")
	for _, p := range l.Prompts {
		source := "embedded"
		if p.IsOverride {
			source = p.Path
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", p.Key, source, p.Hash[:12], p.Variables)
	}
	return tw.Flush()
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt keys and where each resolves from",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := setupServices(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		var list promptList
		for _, p := range svc.Prompts.AllEmbedded() {
			resolved, err := svc.Prompts.Resolve(p.Key)
			if err != nil {
				return err
			}
			list.Prompts = append(list.Prompts, resolved)
		}
		return output.Print(list)
	},
}

var promptsExportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write the embedded prompts as editable override files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := setupServices(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		dir := svc.Prompts.Dir()
		if len(args) > 0 {
			dir = args[0]
		}
		written, err := svc.Prompts.ExportDefaults(dir)
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		}
		if err != nil {
			return err
		}
		if len(written) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "all prompts already exported to %s\n", dir)
		}
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd, promptsExportCmd)
	rootCmd.AddCommand(promptsCmd)
}
