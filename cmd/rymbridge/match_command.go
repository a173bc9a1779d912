package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rymbridge/internal/browser"
	"rymbridge/internal/daemon"
	"rymbridge/internal/logging"
	"rymbridge/internal/scraper"
)

// newMatchCommand corrects a bad automatic match: it scrapes the given album
// page and records its rating under the caller's (artist, album) key.
func newMatchCommand(ctx *commandContext) *cobra.Command {
	var timeoutSecs int

	cmd := &cobra.Command{
		Use:   "match <artist> <album> <album-url>",
		Short: "Pin an album to a specific listing URL",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := logging.NewNop()

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			session, err := browser.NewSession(cfg)
			if err != nil {
				return err
			}
			gate := browser.NewGate(session, cfg.NavigationInterval(), logger)
			sc := scraper.New(gate, cfg, logger)

			runCtx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSecs)*time.Second)
			defer cancel()

			rec, err := sc.FetchDetail(runCtx, args[2])
			if err != nil {
				return fmt.Errorf("fetch listing: %w", err)
			}

			outcome, err := d.Resolver().ManualMatch(runCtx, args[0], args[1], rec)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pinned %s - %s to %s (%.2f from %d votes)\n",
				args[0], args[1], outcome.Record.SourceURL,
				outcome.Record.Rating, outcome.Record.RatingCount)
			if outcome.PersistErr != nil {
				fmt.Fprintf(out, "Warning: rating could not be cached locally: %v\n", outcome.PersistErr)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSecs, "timeout", 120, "Fetch timeout in seconds")
	return cmd
}
