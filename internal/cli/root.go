package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "partyctl",
		Short: "CLI tool for the party games server",
		Long: `partyctl inspects and plays on a party games server.

It covers the operational JSON API (rooms, timers, content statistics,
transfer tokens), spectating a room over SSE and playing interactively
over the WebSocket protocol.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: PARTYCTL_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json (env: PARTYCTL_OUTPUT)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newRoomsCmd())
	rootCmd.AddCommand(newTimersCmd())
	rootCmd.AddCommand(newContentCmd())
	rootCmd.AddCommand(newTransferCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newPlayCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
