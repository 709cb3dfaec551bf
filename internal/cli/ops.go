package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newTimersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timers",
		Short: "Show pending turn and hint timers per room",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TimerList

			if err := client.Get("/api/v1/timers", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Content catalog commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics per game type",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ContentStats

			if err := client.Get("/api/v1/content/stats", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	})

	return cmd
}

func newTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Page transfer token commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "issue <room> <identity>",
		Short: "Issue a single-use transfer token for a room member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Transfer

			path := "/api/v1/rooms/" + url.PathEscape(args[0]) + "/transfer"
			if err := client.Post(path, map[string]string{"identity": args[1]}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "redeem <token>",
		Short: "Redeem a transfer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Redeemed

			if err := client.Post("/api/v1/transfer/redeem", map[string]string{"token": args[0]}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	})

	return cmd
}
