package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mangamatch/internal/api"
	"mangamatch/internal/catalog"
	"mangamatch/internal/config"
	"mangamatch/internal/gateway"
	"mangamatch/internal/importer"
)

type matchOverrides struct {
	workers        int
	threshold      int
	ignoreOneShots bool
	ignoreAdult    bool
	maxPages       int
}

func (o *matchOverrides) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.workers, "workers", 0, "Concurrent matching pipelines (default from config)")
	cmd.Flags().IntVar(&o.threshold, "auto-match", -1, "Auto-match confidence threshold 1-100; 0 disables")
	cmd.Flags().BoolVar(&o.ignoreOneShots, "ignore-one-shots", false, "Drop one-shot publications from candidates")
	cmd.Flags().BoolVar(&o.ignoreAdult, "ignore-adult", false, "Drop adult records from candidates")
	cmd.Flags().IntVar(&o.maxPages, "max-pages", 0, "Search result pages to scan per title")
}

func (o *matchOverrides) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("workers") {
		if o.workers <= 0 || o.workers > 16 {
			return fmt.Errorf("--workers must be between 1 and 16")
		}
		cfg.Matching.Workers = o.workers
	}
	if cmd.Flags().Changed("auto-match") {
		if o.threshold < 0 || o.threshold > 100 {
			return fmt.Errorf("--auto-match must be between 0 and 100")
		}
		cfg.Matching.AutoMatchThreshold = o.threshold
	}
	if o.ignoreOneShots {
		cfg.Matching.IgnoreOneShots = true
	}
	if o.ignoreAdult {
		cfg.Matching.IgnoreAdult = true
	}
	if o.maxPages > 0 {
		cfg.AniList.MaxPages = o.maxPages
	}
	return nil
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var fresh bool
	var jsonOutput bool
	overrides := &matchOverrides{}

	cmd := &cobra.Command{
		Use:   "match <export-file>",
		Short: "Match every title in a tracker export",
		Long: `Import a tracker export (CSV or JSON), match each title against AniList,
and save the results. Decisions from earlier runs (matched, manual, skipped)
are kept; pending entries are replaced. Interrupting the run keeps finished
titles.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := importer.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overrides.apply(cmd, cfg); err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := ctx.openRuntime(runCtx)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(runCtx))

			progress := newProgressLine(cmd.ErrOrStderr())
			res, runErr := rt.RunMatch(runCtx, api.RunMatchRequest{
				Path:     args[0],
				Format:   format,
				Progress: progress.callback(),
				Fresh:    fresh,
			})
			progress.finish()

			if res.Batch == nil {
				return runErr
			}
			if jsonOutput {
				if err := writeJSON(cmd, map[string]any{
					"batch":   res.Batch,
					"counts":  res.Batch.Counts(),
					"results": api.FromMatchResults(res.Saved),
				}); err != nil {
					return err
				}
				return runOutcome(res, runErr)
			}

			out := cmd.OutOrStdout()
			if len(res.Batch.Results) > 0 {
				fmt.Fprintln(out, renderResults(api.FromMatchResults(res.Batch.Results)))
			}
			fmt.Fprintf(out, "Matched %d of %d titles: %s\n",
				res.Batch.Completed, res.Inputs, api.StatusSummary(res.Batch.Counts()))
			if len(res.Saved) > 0 {
				fmt.Fprintf(out, "Saved %d results to %s\n", len(res.Saved), cfg.DatabasePath())
			}
			return runOutcome(res, runErr)
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "auto", "Export format: auto, csv, or json")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Discard saved decisions instead of merging them")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	overrides.register(cmd)
	return cmd
}

// runOutcome turns a partial run into a user-facing error after results have
// been printed.
func runOutcome(res api.RunMatchResult, runErr error) error {
	var rl *gateway.RateLimitedError
	switch {
	case errors.As(runErr, &rl):
		wait := "later"
		if rl.RetryAfterSeconds > 0 {
			wait = fmt.Sprintf("in %ds", rl.RetryAfterSeconds)
		}
		return fmt.Errorf("AniList rate limit reached after %d of %d titles; rerun %s to continue (finished titles are saved)",
			res.Batch.Completed, res.Inputs, wait)
	case runErr != nil:
		return runErr
	case res.Batch.Cancelled:
		return fmt.Errorf("run interrupted after %d of %d titles (finished titles are saved)", res.Batch.Completed, res.Inputs)
	}
	return nil
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var catalogID int64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "lookup [title]",
		Short: "Match a single title (or a known AniList id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := catalog.Input{CatalogID: catalogID}
			if len(args) == 1 {
				in.Title = strings.TrimSpace(args[0])
			}
			if in.Title == "" && in.CatalogID <= 0 {
				return errors.New("a title or --id is required")
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()
			rt, err := ctx.openRuntime(runCtx)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(runCtx))

			result, err := rt.Matcher.MatchOne(runCtx, in, rt.Token())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			view := api.FromMatchResult(result)
			fmt.Fprintf(out, "Status: %s\n", view.Status)
			if len(result.Candidates) == 0 {
				fmt.Fprintln(out, "No candidates found.")
				return nil
			}
			fmt.Fprintln(out, renderCandidates(api.FromCandidates(result.Candidates)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&catalogID, "id", 0, "Known AniList id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
