package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health and round-trip latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			start := time.Now()
			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}
			result.Server = cfg.ServerURL
			result.Latency = time.Since(start).Round(time.Millisecond).String()

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
