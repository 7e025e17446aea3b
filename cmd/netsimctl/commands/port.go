package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type sniffView struct {
	IncomingCount int `json:"incoming_count"`
	OutgoingCount int `json:"outgoing_count"`
}

func portCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "port",
		Short: "Inspect a device's ports",
	}

	cmd.AddCommand(portSniffCmd())

	return cmd
}

func portSniffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sniff <handle> <port>",
		Short: "Count frames queued on a port's incoming and outgoing buffers",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			handle, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse handle %q: %w", args[0], err)
			}
			port, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("parse port %q: %w", args[1], err)
			}

			var sniff sniffView
			path := fmt.Sprintf("/devices/%d/ports/%d/sniff", handle, port)
			if err := doJSON("GET", path, nil, &sniff); err != nil {
				return err
			}

			out, err := formatSniff(sniff, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}
