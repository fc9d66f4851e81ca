package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/devicefactory"
	"github.com/srg/openvario/internal/vario"
	"github.com/srg/openvario/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for Bluetooth Low Energy devices in range and list their names,
addresses, signal strength and advertised services.

With --watch every discovery, update and loss is printed as it happens.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration    time.Duration
	scanServices    []string
	scanAllowList   []string
	scanBlockList   []string
	scanNoDuplicate bool
	scanWatch       bool
	scanOpenVario   bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (0 for indefinite); overrides scan_timeout")
	scanCmd.Flags().StringSliceVarP(&scanServices, "services", "s", nil, "Only show devices advertising these service UUIDs")
	scanCmd.Flags().StringSliceVar(&scanAllowList, "allow", nil, "Only show devices with these addresses")
	scanCmd.Flags().StringSliceVar(&scanBlockList, "block", nil, "Hide devices with these addresses")
	scanCmd.Flags().BoolVar(&scanNoDuplicate, "no-duplicates", true, "Filter duplicate advertisements")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Print discovery events as they happen")
	scanCmd.Flags().BoolVar(&scanOpenVario, "openvario", false, "Only show devices advertising an OpenVario service")
}

// parseServiceFilter accepts short (180f) and full UUIDs.
func parseServiceFilter(values []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := device.ParseUUID(v)
		if err != nil {
			return nil, fmt.Errorf("invalid service UUID %q: %w", v, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	services, err := parseServiceFilter(scanServices)
	if err != nil {
		return err
	}
	if scanOpenVario {
		services = append(services,
			vario.IdentificationServiceUUID,
			vario.AltimeterServiceUUID,
			vario.BarometerServiceUUID,
			vario.NavigationServiceUUID,
			vario.VariometerServiceUUID)
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	opts := cfg.ScanOptions()
	if cmd.Flags().Changed("duration") {
		opts.Duration = scanDuration
	}
	opts.DuplicateFilter = scanNoDuplicate
	opts.ServiceUUIDs = services
	opts.AllowList = scanAllowList
	opts.BlockList = scanBlockList

	dev, err := devicefactory.ScanningDeviceFactory()
	if err != nil {
		return fmt.Errorf("failed to open BLE adapter: %w", err)
	}
	s, err := scanner.NewScanner(dev, logger)
	if err != nil {
		return fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	out := cmd.OutOrStdout()
	ctx, cancel := interruptible(cmd.Context(), out, "scan")
	defer cancel()

	if scanWatch {
		return watchScan(ctx, s, opts, out)
	}

	progress := NewCountdownProgressPrinter(cmd.ErrOrStderr(), "Scanning for BLE devices", "Scanning", opts.Duration, "Processing results")
	progress.Start()
	devices, err := s.Scan(ctx, opts, progress.Callback())
	progress.Stop()
	if err != nil {
		return err
	}

	if cfg.OutputFormat == "json" {
		return writeJSON(out, devices)
	}
	return printDevices(out, newPalette(out), devices)
}

// watchScan prints every discovery event until the scan ends.
func watchScan(ctx context.Context, s *scanner.Scanner, opts *scanner.ScanOptions, out io.Writer) error {
	pal := newPalette(out)
	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(ctx, opts, nil)
		done <- err
	}()

	emit := func(ev device.DiscoveryEvent) {
		if ev.Type == device.EventDiscoveryComplete {
			fmt.Fprintf(out, "scan %s\n", ev.Status)
			return
		}
		printDiscoveryEvent(out, pal, ev)
	}

	for {
		select {
		case ev := <-s.Events():
			emit(ev)
		case err := <-done:
			// flush what was published before the scan returned
		drain:
			for {
				select {
				case ev := <-s.Events():
					emit(ev)
				default:
					break drain
				}
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}

func printDiscoveryEvent(w io.Writer, pal *palette, ev device.DiscoveryEvent) {
	tag := pal.ok
	if ev.Type == device.EventLost {
		tag = pal.warn
	}
	name := ev.Info.Name
	if name == "" {
		name = "(unknown)"
	}
	fmt.Fprintf(w, "%s %s %s %d dBm\n",
		tag.Sprintf("%-10s", ev.Type), pal.value.Sprint(ev.Info.Address), name, ev.Info.RSSI)
}

func printDevices(w io.Writer, pal *palette, devices []device.Info) error {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices discovered")
		return nil
	}

	sorted := make([]device.Info, len(devices))
	copy(sorted, devices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RSSI > sorted[j].RSSI
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, pal.label.Sprint("NAME\tADDRESS\tRSSI\tSERVICES"))
	for _, d := range sorted {
		name := d.Name
		if name == "" {
			name = "(unknown)"
		}
		ids := make([]string, 0, len(d.Services))
		for _, id := range d.Services {
			ids = append(ids, device.ShortenUUID(id))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d dBm\t%s\n",
			truncate(name, 20), d.Address, d.RSSI, truncate(strings.Join(ids, ","), 40))
	}
	return tw.Flush()
}
