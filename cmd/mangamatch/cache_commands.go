package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the search and record caches",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache namespace statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(cmd.Context()))

			stats := rt.Matcher.CacheStats()
			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			columns := []column{
				{header: "Namespace"},
				{header: "Entries", align: alignRight},
				{header: "Expired", align: alignRight},
				{header: "TTL"},
				{header: "Oldest"},
				{header: "Newest"},
			}
			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				rows = append(rows, []string{
					s.Namespace,
					strconv.Itoa(s.Entries),
					strconv.Itoa(s.Expired),
					s.TTL.String(),
					formatTime(s.Oldest),
					formatTime(s.Newest),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(columns, rows))
			fmt.Fprintf(out, "Backend: %s\n", rt.Config.Cache.Backend)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [title]",
		Short: "Invalidate cached lookups for a title, or everything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(cmd.Context()))

			title := ""
			if len(args) == 1 {
				title = strings.TrimSpace(args[0])
			}
			if err := rt.Matcher.InvalidateCache(cmd.Context(), title); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if title == "" {
				fmt.Fprintln(out, "Cleared all cached lookups")
			} else {
				fmt.Fprintf(out, "Cleared cached lookups for %q\n", title)
			}
			return nil
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
