package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mangamatch/internal/api"
	"mangamatch/internal/catalog"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Review and decide saved match results",
	}
	resultsCmd.AddCommand(newResultsListCommand(ctx))
	resultsCmd.AddCommand(newResultsDecideCommand(ctx))
	resultsCmd.AddCommand(newResultsClearCommand(ctx))
	return resultsCmd
}

func newResultsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved results",
		RunE: func(cmd *cobra.Command, args []string) error {
			var want catalog.ResultStatus
			if strings.TrimSpace(statusFlag) != "" {
				parsed, ok := catalog.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFlag)
				}
				want = parsed
			}

			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			saved, err := st.LoadResults(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := st.CountByStatus(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]api.ResultView, 0, len(saved))
			for _, result := range saved {
				if want != "" && result.Status != want {
					continue
				}
				views = append(views, api.FromMatchResult(result))
			}
			if jsonOutput {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No saved results")
			} else {
				fmt.Fprintln(out, renderResults(views))
			}
			fmt.Fprintf(out, "Totals: %s\n", api.StatusSummary(counts))
			return nil
		},
	}
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Only show results with this status (pending, matched, manual, skipped)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newResultsDecideCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var selected int64

	cmd := &cobra.Command{
		Use:   "decide <title-key>",
		Short: "Record a decision for a saved result",
		Long: `Record a decision for one saved result. The key is the normalized title
shown by "results list --json". Use --id to pick one of the result's
candidates; an id of 0 clears the selection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := catalog.ParseStatus(statusFlag)
			if !ok {
				return fmt.Errorf("unknown status %q", statusFlag)
			}
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := st.SetDecision(cmd.Context(), args[0], status, selected)
			if err != nil {
				return err
			}
			view := api.FromMatchResult(result)
			out := cmd.OutOrStdout()
			if view.SelectedID > 0 {
				fmt.Fprintf(out, "%s: %s (%s, id %d)\n", view.Title, view.Status, view.SelectedTitle, view.SelectedID)
			} else {
				fmt.Fprintf(out, "%s: %s\n", view.Title, view.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&statusFlag, "status", "s", string(catalog.StatusMatched), "Decision: pending, matched, manual, or skipped")
	cmd.Flags().Int64Var(&selected, "id", 0, "AniList id of the chosen candidate")
	return cmd
}

func newResultsClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete saved results without --yes")
			}
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.ClearResults(context.WithoutCancel(cmd.Context())); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared saved results")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
