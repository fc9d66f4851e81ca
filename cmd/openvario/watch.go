package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/openvario/inspector"
	"github.com/srg/openvario/internal/units"
	"github.com/srg/openvario/internal/vario"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <device-address> [service...]",
	Short: "Stream live value changes",
	Long: fmt.Sprintf(`Subscribes to value change notifications and prints every change until
Ctrl+C is pressed or --duration elapses. Without services all available
services are watched.

Services: altimeter, barometer, navigation, variometer

Examples:
  openvario watch %s
  openvario watch %s variometer --duration 1m

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

var (
	watchDuration  time.Duration
	watchSpeedUnit string
)

func init() {
	watchCmd.Flags().DurationVarP(&watchDuration, "duration", "d", 0, "Stop watching after this long (0 for until Ctrl+C)")
	watchCmd.Flags().StringVar(&watchSpeedUnit, "speed-unit", "", "Unit for speed; overrides speed_unit")
}

// watchEvents prints events until ctx ends and returns how many were printed.
func watchEvents(ctx context.Context, events <-chan vario.Event, out io.Writer, pal *palette, unit units.SpeedUnit, jsonOut bool) int {
	count := 0
	for {
		select {
		case <-ctx.Done():
			return count
		case ev := <-events:
			r := eventReading(ev, unit)
			if jsonOut {
				_ = writeJSON(out, struct {
					Time time.Time `json:"time"`
					reading
				}{time.Now(), r})
			} else {
				fmt.Fprintf(out, "%s  %s %s\n", time.Now().Format("15:04:05.000"),
					pal.label.Sprintf("%-13s", r.Name), pal.value.Sprint(r.text()))
			}
			count++
		}
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	selected, err := findStreams(args[1:])
	if err != nil {
		return err
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	unit := cfg.Speed()
	if watchSpeedUnit != "" {
		if unit, err = units.ParseSpeedUnit(watchSpeedUnit); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	pal := newPalette(out)

	count, err := withDevice(cmd, cfg, logger, args[0], false, func(ctx context.Context, t inspector.Target) (int, error) {
		if watchDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, watchDuration)
			defer cancel()
		}

		events, stop, err := startStreams(ctx, t.Device, selected, len(args) == 1)
		if err != nil {
			return 0, err
		}
		defer stop(context.WithoutCancel(ctx))

		fmt.Fprintln(cmd.ErrOrStderr(), "Watching, press Ctrl+C to stop")
		return watchEvents(ctx, events, out, pal, unit, cfg.OutputFormat == "json"), nil
	})
	if err != nil {
		return err
	}

	logger.WithField("events", count).Info("Watch finished")
	return nil
}
