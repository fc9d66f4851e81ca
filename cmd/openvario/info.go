package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/openvario/inspector"
	"github.com/srg/openvario/internal/vario"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <device-address>",
	Short: "Show the device identification",
	Long: fmt.Sprintf(`Connects to an OpenVario device, runs the identification handshake and
prints the firmware and hardware record together with the services the
device provides.

%s`, deviceAddressNote),
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

// deviceSummary is the result of the info command.
type deviceSummary struct {
	vario.IdentificationInfo
	Services []string `json:"services"`
	Missing  []string `json:"missing_services,omitempty"`
}

func summarize(d *vario.Device) (deviceSummary, error) {
	info, err := d.Info()
	if err != nil {
		return deviceSummary{}, err
	}
	s := deviceSummary{IdentificationInfo: info}

	probes := []struct {
		name string
		err  error
	}{
		{"altimeter", errOf(d.Altimeter())},
		{"barometer", errOf(d.Barometer())},
		{"navigation", errOf(d.Navigation())},
		{"variometer", errOf(d.Variometer())},
	}
	for _, p := range probes {
		switch {
		case p.err == nil:
			s.Services = append(s.Services, p.name)
		case errors.Is(p.err, vario.ErrServiceUnavailable):
			s.Missing = append(s.Missing, p.name)
		default:
			return deviceSummary{}, p.err
		}
	}
	return s, nil
}

func errOf[T any](_ T, err error) error { return err }

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	summary, err := withDevice(cmd, cfg, logger, args[0], false, func(_ context.Context, t inspector.Target) (deviceSummary, error) {
		return summarize(t.Device)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.OutputFormat == "json" {
		return writeJSON(out, summary)
	}

	pal := newPalette(out)
	if err := printIdentification(out, pal, summary.IdentificationInfo); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", pal.label.Sprint("Services:"), pal.ok.Sprint(strings.Join(summary.Services, ", ")))
	if len(summary.Missing) > 0 {
		fmt.Fprintf(out, "%s %s\n", pal.label.Sprint("Missing:"), pal.warn.Sprint(strings.Join(summary.Missing, ", ")))
	}
	return nil
}
