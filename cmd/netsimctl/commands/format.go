package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

func formatDevices(devices []deviceView, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalIndent(devices)
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HANDLE\tKIND")
		for _, d := range devices {
			fmt.Fprintf(w, "%d\t%s\n", d.Handle, colorKind(d.Kind))
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatDevice(d deviceView, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalIndent(d)
	case formatTable:
		return fmt.Sprintf("handle=%d kind=%s\n", d.Handle, colorKind(d.Kind)), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatRoutes(routes []routeView, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalIndent(routes)
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NETWORK\tMASK\tMETRIC\tPORT")
		for _, rt := range routes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", rt.Network, rt.Mask, colorMetric(rt.Metric), rt.Port)
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatSniff(s sniffView, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalIndent(s)
	case formatTable:
		return fmt.Sprintf("incoming=%d outgoing=%d\n", s.IncomingCount, s.OutgoingCount), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// colorKind tints a device kind for table output: routers in cyan, switches
// in green, desktops left uncolored.
func colorKind(kind string) string {
	switch kind {
	case "router":
		return color.CyanString(kind)
	case "switch":
		return color.GreenString(kind)
	default:
		return kind
	}
}

// colorMetric flags a directly connected route (metric 0) in green against
// a RIP-learned route in yellow.
func colorMetric(metric uint32) string {
	if metric == 0 {
		return color.GreenString("%d", metric)
	}
	return color.YellowString("%d", metric)
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal to JSON: %w", err)
	}
	return string(data) + "\n", nil
}
