package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"rymbridge/internal/api"
	"rymbridge/internal/daemon"
	"rymbridge/internal/logging"
	"rymbridge/internal/resolver"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var timeoutSecs int

	cmd := &cobra.Command{
		Use:   "resolve <artist> <album>",
		Short: "Resolve the rating for an album",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// Logs go to stderr so --json output stays parseable.
			logger := logging.NewNop()
			if !jsonOut {
				if l, err := logging.New(logging.Options{
					Level:            cfg.Logging.Level,
					Format:           cfg.Logging.Format,
					OutputPaths:      []string{"stderr"},
					ErrorOutputPaths: []string{"stderr"},
				}); err == nil {
					logger = l
				}
			}

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			runCtx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSecs)*time.Second)
			defer cancel()

			outcome, err := d.Resolver().Resolve(runCtx, args[0], args[1])
			if errors.Is(err, resolver.ErrNotFound) {
				if jsonOut {
					return writeJSON(cmd, api.ResolveResponse{NotFound: true})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "No listing found for %s - %s\n", args[0], args[1])
				return nil
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, api.ResolveResponse{
					Rating:        api.FromRecord(outcome.Record),
					Source:        string(outcome.Source),
					Stale:         outcome.Stale,
					PersistFailed: outcome.PersistErr != nil,
				})
			}
			renderOutcome(cmd, outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the result as JSON")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 120, "Resolution timeout in seconds")
	return cmd
}

func renderOutcome(cmd *cobra.Command, outcome resolver.Outcome) {
	rec := outcome.Record
	out := cmd.OutOrStdout()

	rows := [][]string{{
		rec.ArtistName,
		rec.AlbumName,
		strconv.FormatFloat(rec.Rating, 'f', 2, 64),
		strconv.Itoa(rec.RatingCount),
		string(outcome.Source),
	}}
	fmt.Fprintln(out, renderTable(
		[]string{"Artist", "Album", "Rating", "Votes", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	if rec.Genres != "" {
		fmt.Fprintf(out, "Genres:   %s\n", rec.Genres)
	}
	if rec.ReleaseDate != "" {
		fmt.Fprintf(out, "Released: %s\n", rec.ReleaseDate)
	}
	fmt.Fprintf(out, "Source:   %s\n", rec.SourceURL)
	if outcome.Stale {
		fmt.Fprintln(out, "Note: served from stale cache; live refresh failed")
	}
	if outcome.PersistErr != nil {
		fmt.Fprintf(out, "Warning: rating could not be cached locally: %v\n", outcome.PersistErr)
	}
}
