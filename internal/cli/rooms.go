package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Room inspection commands",
	}

	cmd.AddCommand(newRoomsListCmd())
	cmd.AddCommand(newRoomsGetCmd())

	return cmd
}

func newRoomsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomList

			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newRoomsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <room>",
		Short: "Get the public state of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomView

			if err := client.Get("/api/v1/rooms/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
