package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type routeView struct {
	Network string `json:"network"`
	Mask    string `json:"mask"`
	Metric  uint32 `json:"metric"`
	Port    int    `json:"port"`
}

func routerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "router",
		Short: "Manage router routing tables and RIP",
	}

	cmd.AddCommand(routerRoutesCmd())
	cmd.AddCommand(routerRIPEnableCmd())

	return cmd
}

func routerRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes <handle>",
		Short: "List a router's routing table",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			handle, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse handle %q: %w", args[0], err)
			}

			var routes []routeView
			if err := doJSON("GET", fmt.Sprintf("/devices/%d/routes", handle), nil, &routes); err != nil {
				return err
			}

			out, err := formatRoutes(routes, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func routerRIPEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rip-enable <handle> <port>",
		Short: "Enable RIP advertisement and learning on a router port",
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

			path := fmt.Sprintf("/devices/%d/ports/%d/rip", handle, port)
			if err := doJSON("POST", path, nil, nil); err != nil {
				return err
			}
			fmt.Printf("RIP enabled on device %d port %d.\n", handle, port)
			return nil
		},
	}
}
