package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/shotlist/internal/llmcall"
	"github.com/jackzampolin/shotlist/internal/output"
)

var (
	callsStage    string
	callsSource   string
	callsProvider string
	callsFailed   bool
	callsSince    time.Duration
	callsLimit    int
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect recorded LLM calls",
	Long: `Every LLM call made by the pipeline is recorded in calls.db in the
workspace: stage, source file, prompt key and hash, provider, model,
token usage, latency and outcome.`,
}

func callsFilter() llmcall.QueryFilter {
	f := llmcall.QueryFilter{
		Stage:    callsStage,
		Source:   callsSource,
		Provider: callsProvider,
		Limit:    callsLimit,
	}
	if callsFailed {
		ok := false
		f.Success = &ok
	}
	if callsSince > 0 {
		after := time.Now().Add(-callsSince)
		f.After = &after
	}
	return f
}

// callList renders a list of calls.
type callList struct {
	Calls []llmcall.Call `json:"calls" yaml:"calls"`
}

func (l callList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTAGE\tSOURCE\tPROVIDER\tMODEL\tTOKENS\tLATENCY\tSTATUS")
	for _, c := range l.Calls {
		status := "ok"
		if !c.Success {
			status = c.ErrorType
			if status == "" {
				status = "failed"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%dms\t%s\n",
			c.Timestamp.Local().Format(time.DateTime), c.Stage, c.Source, c.Provider, c.Model,
			c.InputTokens, c.OutputTokens, c.LatencyMs, status)
	}
	return tw.Flush()
}

// callStats renders per-stage aggregates.
type callStats struct {
	Stages []llmcall.Stats `json:"stages" yaml:"stages"`
}

func (s callStats) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCALLS\tOK\tFAILED\tINPUT TOKENS\tOUTPUT TOKENS\tCOST\tAVG LATENCY")
	for _, st := range s.Stages {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t$%.4f\t%.0fms\n",
			st.Stage, st.Calls, st.Succeeded, st.Failed, st.InputTokens, st.OutputTokens, st.CostUSD, st.AvgLatencyMs)
	}
	return tw.Flush()
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded calls, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := setupServices(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		calls, err := svc.LLMCallStore.List(cmd.Context(), callsFilter())
		if err != nil {
			return err
		}
		return output.Print(callList{Calls: calls})
	},
}

var callsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded call with its response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := setupServices(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		call, err := svc.LLMCallStore.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if call == nil {
			return fmt.Errorf("call not found: %s", args[0])
		}
		format := output.GetFormat()
		if format == output.FormatText {
			format = output.FormatYAML
		}
		return output.To(cmd.OutOrStdout(), format, call)
	},
}

var callsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show call counts, tokens, cost and latency per stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := setupServices(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := svc.LLMCallStore.Stats(cmd.Context(), callsFilter())
		if err != nil {
			return err
		}
		return output.Print(callStats{Stages: stats})
	},
}

func init() {
	for _, c := range []*cobra.Command{callsListCmd, callsStatsCmd} {
		c.Flags().StringVar(&callsStage, "stage", "", "only calls from this stage")
		c.Flags().StringVar(&callsSource, "source", "", "only calls for this source file")
		c.Flags().StringVar(&callsProvider, "provider", "", "only calls to this provider")
		c.Flags().BoolVar(&callsFailed, "failed", false, "only failed calls")
		c.Flags().DurationVar(&callsSince, "since", 0, "only calls within this duration, e.g. 24h")
	}
	callsListCmd.Flags().IntVar(&callsLimit, "limit", 50, "maximum number of calls")

	callsCmd.AddCommand(callsListCmd, callsShowCmd, callsStatsCmd)
	rootCmd.AddCommand(callsCmd)
}
