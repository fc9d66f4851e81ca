package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/openvario/inspector"
	"github.com/srg/openvario/internal/units"
	"github.com/srg/openvario/internal/vario"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <device-address> [value...]",
	Short: "Read measurements",
	Long: fmt.Sprintf(`Reads measurements from an OpenVario device. Without values every
measurement of every available service is read.

Values: %s
A service name (altimeter, barometer, navigation, variometer) selects all of
its values.

Examples:
  openvario read %s
  openvario read %s main pressure speed --speed-unit m/s

%s`, strings.Join(measurementNames(), ", "), exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

const exampleDeviceAddress = "AA:BB:CC:DD:EE:FF"

var readSpeedUnit string

func init() {
	readCmd.Flags().StringVar(&readSpeedUnit, "speed-unit", "", "Unit for speed (m/s, ft/s, m/min, ft/min, km/h, mph); overrides speed_unit")
}

// readAll reads each measurement. When the full catalog is requested,
// values of services the device lacks are skipped.
func readAll(ctx context.Context, d *vario.Device, selected []measurement, skipMissing bool, unit units.SpeedUnit) ([]reading, error) {
	out := make([]reading, 0, len(selected))
	for _, m := range selected {
		ev, err := m.read(ctx, d)
		if err != nil {
			if skipMissing && errors.Is(err, vario.ErrServiceUnavailable) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", m.name, err)
		}
		out = append(out, eventReading(ev, unit))
	}
	return out, nil
}

func runRead(cmd *cobra.Command, args []string) error {
	selected, err := findMeasurements(args[1:])
	if err != nil {
		return err
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	unit := cfg.Speed()
	if readSpeedUnit != "" {
		if unit, err = units.ParseSpeedUnit(readSpeedUnit); err != nil {
			return err
		}
	}

	readings, err := withDevice(cmd, cfg, logger, args[0], false, func(ctx context.Context, t inspector.Target) ([]reading, error) {
		return readAll(ctx, t.Device, selected, len(args) == 1, unit)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.OutputFormat == "json" {
		return writeJSON(out, readings)
	}
	return printReadings(out, newPalette(out), readings)
}
