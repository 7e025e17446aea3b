// Package commands implements the netsimctl CLI commands.
package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// httpClient issues every control-API request, initialized in
	// PersistentPreRunE.
	httpClient *http.Client

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the netsimd control API address (host:port).
	serverAddr string
)

// rootCmd is the top-level cobra command for netsimctl.
var rootCmd = &cobra.Command{
	Use:   "netsimctl",
	Short: "CLI client for the netsimd simulator daemon",
	Long:  "netsimctl talks to the netsimd control API over plain JSON/HTTP to manage a running simulation's devices, links, and routes.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		httpClient = &http.Client{Timeout: 10 * time.Second}
		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8080",
		"netsimd control API address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(deviceCmd())
	rootCmd.AddCommand(portCmd())
	rootCmd.AddCommand(routerCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// baseURL returns the control API's base URL built from --addr.
func baseURL() string {
	return "http://" + serverAddr
}
