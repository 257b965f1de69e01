package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mangamatch/internal/api"
	"mangamatch/internal/matcher"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		page       int
		perPage    int
		genres     []string
		tags       []string
		formats    []string
		fresh      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Search AniList and rank the candidates for a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			filter, err := api.ParseFilter(genres, tags, formats)
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()
			rt, err := ctx.openRuntime(runCtx)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(runCtx))

			result, err := rt.Matcher.Search(runCtx, title, rt.Token(), matcher.SearchOptions{
				Page:        page,
				PerPage:     perPage,
				Filter:      filter,
				BypassCache: fresh,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			if len(result.Matches) == 0 {
				fmt.Fprintf(out, "No results for %q\n", title)
				return nil
			}
			fmt.Fprintln(out, renderCandidates(api.FromCandidates(result.Matches)))
			info := result.PageInfo
			source := "catalog"
			if result.Cached {
				source = "cache"
			}
			fmt.Fprintf(out, "Page %d of %d (%d total, from %s)", max(info.CurrentPage, 1), max(info.LastPage, 1), info.Total, source)
			if info.HasNextPage {
				fmt.Fprintf(out, "; next: --page %d", info.CurrentPage+1)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Results per page (default from config)")
	cmd.Flags().StringSliceVar(&genres, "genre", nil, "Restrict to genres (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Restrict to tags (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Restrict to formats: manga, novel, one_shot")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Bypass the search cache")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderCandidates(views []api.CandidateView) string {
	columns := []column{
		{header: "#", align: alignRight},
		{header: "ID", align: alignRight},
		{header: "Title", maxWidth: titleWidth},
		{header: "Format"},
		{header: "Conf", align: alignRight},
		{header: "Field"},
		{header: "Source"},
		{header: "On List"},
	}
	rows := make([][]string, 0, len(views))
	for i, v := range views {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			formatID(v.ID),
			dash(v.Title),
			dash(v.Format),
			fmt.Sprintf("%d%%", v.Confidence),
			v.MatchedField,
			v.Provenance,
			yesNo(v.OnList),
		})
	}
	return renderTable(columns, rows)
}
