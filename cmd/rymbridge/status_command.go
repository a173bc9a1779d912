package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"rymbridge/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 5 * time.Second}
			url := fmt.Sprintf("http://%s/api/status", cfg.Paths.APIBind)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			resp, err := client.Do(req)
			if err != nil {
				if jsonOut {
					return writeJSON(cmd, api.StatusResponse{Running: false})
				}
				fmt.Fprintf(out, "Daemon:   not running (%s)\n", cfg.Paths.APIBind)
				return nil
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status request failed: %s", resp.Status)
			}

			var status api.StatusResponse
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("decode status response: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, status)
			}

			fmt.Fprintf(out, "Daemon:   running (pid %d)\n", status.PID)
			fmt.Fprintf(out, "Bind:     %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "Database: %s\n", status.DatabasePath)
			fmt.Fprintf(out, "Cached:   %d ratings\n", status.CachedRatings)
			fmt.Fprintf(out, "Mirror:   %s\n", yesNo(status.MirrorEnabled))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}
