package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/srg/openvario/internal/groutine"
	"github.com/srg/openvario/internal/vario"
)

// measurement is a value the read command knows how to fetch.
type measurement struct {
	name    string
	service string
	read    func(ctx context.Context, d *vario.Device) (vario.Event, error)
}

func altitudeMeasurement(alt vario.Altitude) measurement {
	return measurement{
		name:    alt.String(),
		service: "altimeter",
		read: func(ctx context.Context, d *vario.Device) (vario.Event, error) {
			a, err := d.Altimeter()
			if err != nil {
				return nil, err
			}
			v, err := a.ReadAltitude(ctx, alt)
			return vario.AltitudeChanged{Altitude: alt, Value: v}, err
		},
	}
}

func barometerMeasurement(which vario.BarometerValue) measurement {
	return measurement{
		name:    which.String(),
		service: "barometer",
		read: func(ctx context.Context, d *vario.Device) (vario.Event, error) {
			b, err := d.Barometer()
			if err != nil {
				return nil, err
			}
			r, err := b.ReadBarometerValue(ctx, which)
			if err != nil {
				return nil, err
			}
			if which == vario.Pressure {
				return vario.PressureChanged{Value: r.Pressure}, nil
			}
			return vario.TemperatureChanged{Value: r.Temperature}, nil
		},
	}
}

func navigationMeasurement(which vario.NavigationValue) measurement {
	return measurement{
		name:    which.String(),
		service: "navigation",
		read: func(ctx context.Context, d *vario.Device) (vario.Event, error) {
			n, err := d.Navigation()
			if err != nil {
				return nil, err
			}
			if which == vario.Speed {
				s, err := n.ReadSpeed(ctx)
				return vario.SpeedChanged{Value: s}, err
			}
			r, err := n.ReadNavigationValue(ctx, which)
			if err != nil {
				return nil, err
			}
			switch which {
			case vario.Latitude:
				return vario.LatitudeChanged{Value: r.Latitude}, nil
			case vario.Longitude:
				return vario.LongitudeChanged{Value: r.Longitude}, nil
			default:
				return vario.TrackAngleChanged{Value: r.TrackAngle}, nil
			}
		},
	}
}

func variometerMeasurement(which vario.VariometerValue) measurement {
	return measurement{
		name:    which.String(),
		service: "variometer",
		read: func(ctx context.Context, d *vario.Device) (vario.Event, error) {
			v, err := d.Variometer()
			if err != nil {
				return nil, err
			}
			r, err := v.ReadVariometerValue(ctx, which)
			if err != nil {
				return nil, err
			}
			if which == vario.Vario {
				return vario.VarioChanged{Value: r.Vario}, nil
			}
			return vario.AccelerationChanged{Value: r.Acceleration}, nil
		},
	}
}

// measurements in display order.
var measurements = []measurement{
	altitudeMeasurement(vario.MainAltitude),
	altitudeMeasurement(vario.Altitude1),
	altitudeMeasurement(vario.Altitude2),
	altitudeMeasurement(vario.Altitude3),
	altitudeMeasurement(vario.Altitude4),
	barometerMeasurement(vario.Pressure),
	barometerMeasurement(vario.Temperature),
	navigationMeasurement(vario.Speed),
	navigationMeasurement(vario.Latitude),
	navigationMeasurement(vario.Longitude),
	navigationMeasurement(vario.TrackAngle),
	variometerMeasurement(vario.Vario),
	variometerMeasurement(vario.Acceleration),
}

func measurementNames() []string {
	names := make([]string, len(measurements))
	for i, m := range measurements {
		names[i] = m.name
	}
	return names
}

// findMeasurements resolves names; a service name selects all its measurements.
func findMeasurements(names []string) ([]measurement, error) {
	if len(names) == 0 {
		return measurements, nil
	}
	var out []measurement
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "altitude" {
			name = vario.MainAltitude.String()
		}
		found := false
		for _, m := range measurements {
			if m.name == name || m.service == name {
				out = append(out, m)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown value %q (known: %s)", name, strings.Join(measurementNames(), ", "))
		}
	}
	return out, nil
}

// parseAltitude accepts main (or altitude) and alt1..alt4.
func parseAltitude(name string) (vario.Altitude, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "altitude" {
		return vario.MainAltitude, nil
	}
	for _, alt := range []vario.Altitude{vario.MainAltitude, vario.Altitude1, vario.Altitude2, vario.Altitude3, vario.Altitude4} {
		if alt.String() == name {
			return alt, nil
		}
	}
	return 0, fmt.Errorf("unknown altitude %q: use main, alt1, alt2, alt3 or alt4", name)
}

// notifier is the part of a service proxy used to switch notifications.
type notifier[K comparable] interface {
	StartNotification(ctx context.Context, key K) error
	StopNotification(ctx context.Context, key K) error
}

// subscribe starts notifications for keys. On failure the ones already
// started are stopped again. The returned func stops all of them.
func subscribe[K comparable](ctx context.Context, n notifier[K], keys ...K) (func(context.Context), error) {
	started := make([]K, 0, len(keys))
	stop := func(ctx context.Context) {
		for _, k := range started {
			_ = n.StopNotification(ctx, k)
		}
	}
	for _, k := range keys {
		if err := n.StartNotification(ctx, k); err != nil {
			stop(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("failed to subscribe to %v: %w", k, err)
		}
		started = append(started, k)
	}
	return stop, nil
}

// serviceStream starts every notification of one service.
type serviceStream struct {
	name  string
	start func(ctx context.Context, d *vario.Device) (<-chan vario.Event, func(context.Context), error)
}

var streams = []serviceStream{
	{"altimeter", func(ctx context.Context, d *vario.Device) (<-chan vario.Event, func(context.Context), error) {
		a, err := d.Altimeter()
		if err != nil {
			return nil, nil, err
		}
		stop, err := subscribe[vario.Altitude](ctx, a, vario.MainAltitude, vario.Altitude1, vario.Altitude2, vario.Altitude3, vario.Altitude4)
		return a.Events(), stop, err
	}},
	{"barometer", func(ctx context.Context, d *vario.Device) (<-chan vario.Event, func(context.Context), error) {
		b, err := d.Barometer()
		if err != nil {
			return nil, nil, err
		}
		stop, err := subscribe[vario.BarometerValue](ctx, b, vario.Pressure, vario.Temperature)
		return b.Events(), stop, err
	}},
	{"navigation", func(ctx context.Context, d *vario.Device) (<-chan vario.Event, func(context.Context), error) {
		n, err := d.Navigation()
		if err != nil {
			return nil, nil, err
		}
		stop, err := subscribe[vario.NavigationValue](ctx, n, vario.Speed, vario.Latitude, vario.Longitude, vario.TrackAngle)
		return n.Events(), stop, err
	}},
	{"variometer", func(ctx context.Context, d *vario.Device) (<-chan vario.Event, func(context.Context), error) {
		v, err := d.Variometer()
		if err != nil {
			return nil, nil, err
		}
		stop, err := subscribe[vario.VariometerValue](ctx, v, vario.Vario, vario.Acceleration)
		return v.Events(), stop, err
	}},
}

func findStreams(names []string) ([]serviceStream, error) {
	if len(names) == 0 {
		return streams, nil
	}
	var out []serviceStream
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		i := -1
		for j, s := range streams {
			if s.name == name {
				i = j
				break
			}
		}
		if i < 0 {
			return nil, fmt.Errorf("unknown service %q: use altimeter, barometer, navigation or variometer", name)
		}
		out = append(out, streams[i])
	}
	return out, nil
}

// startStreams subscribes to the selected services and merges their events.
// With skipMissing, services the device lacks are left out instead of failing.
func startStreams(ctx context.Context, d *vario.Device, selected []serviceStream, skipMissing bool) (<-chan vario.Event, func(context.Context), error) {
	merged := make(chan vario.Event)
	var stops []func(context.Context)
	stopAll := func(ctx context.Context) {
		for _, stop := range stops {
			stop(ctx)
		}
	}

	for _, s := range selected {
		events, stop, err := s.start(ctx, d)
		if err != nil {
			if skipMissing && errors.Is(err, vario.ErrServiceUnavailable) {
				continue
			}
			stopAll(context.WithoutCancel(ctx))
			return nil, nil, fmt.Errorf("%s: %w", s.name, err)
		}
		stops = append(stops, stop)

		groutine.Go(ctx, "watch-"+s.name, func(ctx context.Context) {
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					select {
					case merged <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		})
	}

	if len(stops) == 0 {
		return nil, nil, fmt.Errorf("no service to watch: %w", vario.ErrServiceUnavailable)
	}
	return merged, stopAll, nil
}
