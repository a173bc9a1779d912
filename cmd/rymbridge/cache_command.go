package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rymbridge/internal/store"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local rating cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))

	return cacheCmd
}

func withStore(ctx *commandContext, fn func(*cobra.Command, *store.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(cmd, st)
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached ratings",
		RunE: withStore(ctx, func(cmd *cobra.Command, st *store.Store) error {
			records, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.ArtistName,
					rec.AlbumName,
					strconv.FormatFloat(rec.Rating, 'f', 2, 64),
					strconv.Itoa(rec.RatingCount),
					rec.ResolvedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			if !isTerminal(out) {
				for _, row := range rows {
					fmt.Fprintln(out, strings.Join(row, "\t"))
				}
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Artist", "Album", "Rating", "Votes", "Resolved"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit records as JSON")
	return cmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache aggregates",
		RunE: withStore(ctx, func(cmd *cobra.Command, st *store.Store) error {
			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", st.Path())
			fmt.Fprintf(out, "Records:  %d\n", stats.Records)
			if stats.Records > 0 {
				fmt.Fprintf(out, "Oldest:   %s\n", stats.OldestUpdate.Local().Format(time.RFC1123))
				fmt.Fprintf(out, "Newest:   %s\n", stats.NewestUpdate.Local().Format(time.RFC1123))
			}
			return nil
		}),
	}
}
