package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/srg/openvario/inspector"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/vario"
)

// servicesCmd represents the services command
var servicesCmd = &cobra.Command{
	Use:   "services <device-address>",
	Short: "List GATT services and characteristics",
	Long: fmt.Sprintf(`Connects to a device and lists every GATT service and characteristic it
exposes, with properties. OpenVario attributes are labeled. The device does
not have to be an OpenVario.

%s`, deviceAddressNote),
	Args: cobra.ExactArgs(1),
	RunE: runServices,
}

var knownAttributes = map[uuid.UUID]string{
	vario.IdentificationServiceUUID: "Identification",
	vario.CommandUUID:               "Command",
	vario.IdentificationInfoUUID:    "Identification info",
	vario.AltimeterServiceUUID:      "Altimeter",
	vario.MainAltitudeUUID:          "Main altitude",
	vario.Altitude1UUID:             "Altitude 1",
	vario.Altitude2UUID:             "Altitude 2",
	vario.Altitude3UUID:             "Altitude 3",
	vario.Altitude4UUID:             "Altitude 4",
	vario.BarometerServiceUUID:      "Barometer",
	vario.PressureUUID:              "Pressure",
	vario.TemperatureUUID:           "Temperature",
	vario.NavigationServiceUUID:     "Navigation",
	vario.SpeedUUID:                 "Speed",
	vario.LatitudeUUID:              "Latitude",
	vario.LongitudeUUID:             "Longitude",
	vario.TrackAngleUUID:            "Track angle",
	vario.VariometerServiceUUID:     "Variometer",
	vario.VarioUUID:                 "Vario",
	vario.AccelerationUUID:          "Acceleration",
}

func attributeName(a device.Attribute) string {
	if name, ok := knownAttributes[a.UUID]; ok {
		return name
	}
	return a.Name
}

type characteristicEntry struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name,omitempty"`
	Properties string `json:"properties"`
}

type serviceEntry struct {
	UUID            string                `json:"uuid"`
	Name            string                `json:"name,omitempty"`
	Characteristics []characteristicEntry `json:"characteristics"`
}

// listServices walks the GATT tree of t.
func listServices(ctx context.Context, t device.Transport) ([]serviceEntry, error) {
	services, err := t.DiscoverServices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]serviceEntry, 0, len(services))
	for _, svc := range services {
		chars, err := t.DiscoverCharacteristics(ctx, svc)
		if err != nil {
			return nil, err
		}
		entry := serviceEntry{
			UUID:            device.ShortenUUID(svc.UUID),
			Name:            attributeName(svc.Attribute),
			Characteristics: make([]characteristicEntry, 0, len(chars)),
		}
		for _, c := range chars {
			entry.Characteristics = append(entry.Characteristics, characteristicEntry{
				UUID:       device.ShortenUUID(c.UUID),
				Name:       attributeName(c.Attribute),
				Properties: c.Properties.String(),
			})
		}
		out = append(out, entry)
	}
	return out, nil
}

func runServices(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	entries, err := withDevice(cmd, cfg, logger, args[0], true, func(ctx context.Context, t inspector.Target) ([]serviceEntry, error) {
		return listServices(ctx, t.Connection)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.OutputFormat == "json" {
		return writeJSON(out, entries)
	}
	return printServices(out, newPalette(out), entries)
}

func printServices(w io.Writer, pal *palette, entries []serviceEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No services found")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, svc := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", pal.label.Sprint(svc.UUID), pal.value.Sprint(svc.Name))
		for _, c := range svc.Characteristics {
			fmt.Fprintf(tw, "  %s\t%s\t[%s]\n", c.UUID, c.Name, c.Properties)
		}
	}
	return tw.Flush()
}
