package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var errDesktopNeedsAddress = errors.New("--ip and --mask are required for kind=desktop")

type deviceView struct {
	Handle int    `json:"handle"`
	Kind   string `json:"kind"`
}

func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage simulated devices",
	}

	cmd.AddCommand(deviceListCmd())
	cmd.AddCommand(deviceCreateCmd())
	cmd.AddCommand(deviceConnectCmd())
	cmd.AddCommand(deviceDeleteCmd())

	return cmd
}

func deviceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every device in the running simulation",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var devices []deviceView
			if err := doJSON("GET", "/devices", nil, &devices); err != nil {
				return err
			}
			out, err := formatDevices(devices, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func deviceCreateCmd() *cobra.Command {
	var (
		kind     string
		mac      string
		ip       string
		mask     string
		priority uint16
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a switch, router, or desktop",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if kind == "desktop" && (ip == "" || mask == "") {
				return errDesktopNeedsAddress
			}

			req := map[string]any{
				"kind":     kind,
				"mac":      mac,
				"ip":       ip,
				"mask":     mask,
				"priority": priority,
			}

			var created deviceView
			if err := doJSON("POST", "/devices", req, &created); err != nil {
				return err
			}

			out, err := formatDevice(created, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&kind, "kind", "", "device kind: switch, router, desktop (required)")
	flags.StringVar(&mac, "mac", "", "hardware address, e.g. 02:00:00:00:00:01 (required)")
	flags.StringVar(&ip, "ip", "", "desktop IPv4 address")
	flags.StringVar(&mask, "mask", "", "desktop subnet mask")
	flags.Uint16Var(&priority, "priority", 32768, "switch RSTP bridge priority")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("mac")

	return cmd
}

func deviceConnectCmd() *cobra.Command {
	var (
		fromPort int
		toHandle int
		toPort   int
	)

	cmd := &cobra.Command{
		Use:   "connect <handle>",
		Short: "Cable one device's port to another device's port",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			handle, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse handle %q: %w", args[0], err)
			}

			req := map[string]any{
				"from_port": fromPort,
				"to_handle": toHandle,
				"to_port":   toPort,
			}
			if err := doJSON("POST", fmt.Sprintf("/devices/%d/connect", handle), req, nil); err != nil {
				return err
			}
			fmt.Printf("Connected device %d port %d to device %d port %d.\n", handle, fromPort, toHandle, toPort)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&fromPort, "from-port", 0, "port on <handle> to connect")
	flags.IntVar(&toHandle, "to-handle", 0, "peer device handle (required)")
	flags.IntVar(&toPort, "to-port", 0, "port on the peer device")
	_ = cmd.MarkFlagRequired("to-handle")

	return cmd
}

func deviceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <handle>",
		Short: "Remove a device from the running simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			handle, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse handle %q: %w", args[0], err)
			}
			if err := doJSON("DELETE", fmt.Sprintf("/devices/%d", handle), nil, nil); err != nil {
				return err
			}
			fmt.Printf("Device %d deleted.\n", handle)
			return nil
		},
	}
}
