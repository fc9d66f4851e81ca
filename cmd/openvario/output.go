package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/srg/openvario/internal/units"
	"github.com/srg/openvario/internal/vario"
	"golang.org/x/term"
)

// palette colors terminal output. Colors are off unless the writer is a terminal.
type palette struct {
	label *color.Color
	value *color.Color
	ok    *color.Color
	warn  *color.Color
}

func newPalette(w io.Writer) *palette {
	p := &palette{
		label: color.New(color.FgCyan),
		value: color.New(color.Bold),
		ok:    color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
	}
	enabled := isTerminal(w)
	for _, c := range []*color.Color{p.label, p.value, p.ok, p.warn} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// reading is one displayed measurement.
type reading struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

func (r reading) text() string {
	if r.Unit == "" {
		return fmt.Sprint(r.Value)
	}
	return fmt.Sprintf("%v %s", r.Value, r.Unit)
}

// eventReading converts a service event into a reading, with speed shown in unit.
func eventReading(ev vario.Event, unit units.SpeedUnit) reading {
	switch e := ev.(type) {
	case vario.AltitudeChanged:
		return reading{Name: e.Altitude.String(), Value: e.Value, Unit: "m"}
	case vario.PressureChanged:
		return reading{Name: "pressure", Value: e.Value, Unit: "mbar"}
	case vario.TemperatureChanged:
		return reading{Name: "temperature", Value: e.Value, Unit: "°C"}
	case vario.SpeedChanged:
		s := e.Value.In(unit)
		return reading{Name: "speed", Value: math.Round(s.Value*10) / 10, Unit: s.Unit.String()}
	case vario.LatitudeChanged:
		return reading{Name: "latitude", Value: e.Value, Unit: "°"}
	case vario.LongitudeChanged:
		return reading{Name: "longitude", Value: e.Value, Unit: "°"}
	case vario.TrackAngleChanged:
		return reading{Name: "track", Value: e.Value, Unit: "°"}
	case vario.VarioChanged:
		return reading{Name: "vario", Value: e.Value, Unit: "m/s"}
	case vario.AccelerationChanged:
		return reading{Name: "acceleration", Value: e.Value, Unit: "g"}
	default:
		return reading{Name: fmt.Sprintf("%T", ev), Value: ev}
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// identificationRows lists the record in handshake order.
func identificationRows(info vario.IdentificationInfo) [][2]string {
	return [][2]string{
		{"GATT version", info.GattVersion},
		{"Software version", info.SoftwareVersion},
		{"Software manufacturer", info.SoftwareManufacturerName},
		{"Hardware version", info.HardwareVersion},
		{"Hardware manufacturer", info.HardwareManufacturerName},
		{"Serial number", info.HardwareSerialNumber},
		{"Manufacturing date", info.HardwareManufacturingDate},
	}
}

func printIdentification(w io.Writer, pal *palette, info vario.IdentificationInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range identificationRows(info) {
		value := row[1]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", pal.label.Sprint(row[0]+":"), pal.value.Sprint(value))
	}
	return tw.Flush()
}

func printReadings(w io.Writer, pal *palette, readings []reading) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range readings {
		fmt.Fprintf(tw, "%s\t%s\n", pal.label.Sprint(r.Name), pal.value.Sprint(r.text()))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
