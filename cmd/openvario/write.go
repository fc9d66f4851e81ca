package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/srg/openvario/inspector"
	"github.com/srg/openvario/internal/vario"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <device-address> <altitude> <meters>",
	Short: "Calibrate an altitude",
	Long: fmt.Sprintf(`Sets one of the altimeter's altitudes, in whole meters. The device derives
its reference pressure from the written value.

Altitudes: main, alt1, alt2, alt3, alt4

Examples:
  openvario write %s main 1500
  openvario write %s alt2 -- -12

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

var writeVerify bool

func init() {
	writeCmd.Flags().BoolVar(&writeVerify, "verify", true, "Read the altitude back after writing")
}

// parseMeters accepts the int16 range the altimeter stores.
func parseMeters(s string) (int16, error) {
	v, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid altitude %q: must be whole meters between -32768 and 32767", s)
	}
	return int16(v), nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	alt, err := parseAltitude(args[1])
	if err != nil {
		return err
	}
	meters, err := parseMeters(args[2])
	if err != nil {
		return err
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	result, err := withDevice(cmd, cfg, logger, args[0], false, func(ctx context.Context, t inspector.Target) (int16, error) {
		a, err := t.Device.Altimeter()
		if err != nil {
			return 0, err
		}
		if err := a.WriteAltitude(ctx, alt, meters); err != nil {
			return 0, err
		}
		if !writeVerify {
			return meters, nil
		}
		return a.ReadAltitude(ctx, alt)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r := eventReading(vario.AltitudeChanged{Altitude: alt, Value: result}, vario.SpeedUnit)
	if cfg.OutputFormat == "json" {
		return writeJSON(out, r)
	}
	pal := newPalette(out)
	if writeVerify && result != meters {
		fmt.Fprintf(out, "%s %s reads back %s\n", pal.warn.Sprint("warning:"), alt, r.text())
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", pal.ok.Sprintf("%s set to", alt), pal.value.Sprint(r.text()))
	return nil
}
