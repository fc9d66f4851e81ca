package vario

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/units"
)

var (
	NavigationServiceUUID = uuid.MustParse("530b9c7a-3185-49f0-9bb5-8e7b88a9df09")

	SpeedUUID      = uuid.MustParse("609a0afe-59a2-4837-b4fe-46d2ddfec0dd")
	LatitudeUUID   = uuid.MustParse("c75a49f0-cfe0-4d93-8109-3dbc588c2243")
	LongitudeUUID  = uuid.MustParse("3692fbda-6a27-4422-a307-5f852658cae0")
	TrackAngleUUID = uuid.MustParse("c6502b8c-5aae-489f-bb23-04eabc389f58")
)

// SpeedUnit is the unit the device reports ground speed in.
const SpeedUnit = units.MeterPerSec

// NavigationValue selects a navigation measurement.
type NavigationValue int

const (
	Speed NavigationValue = iota
	Latitude
	Longitude
	TrackAngle
)

func (n NavigationValue) String() string {
	switch n {
	case Speed:
		return "speed"
	case Latitude:
		return "latitude"
	case Longitude:
		return "longitude"
	case TrackAngle:
		return "track"
	default:
		return fmt.Sprintf("NavigationValue(%d)", int(n))
	}
}

var navigationBindings = []Binding[NavigationValue]{
	{Speed, SpeedUUID},
	{Latitude, LatitudeUUID},
	{Longitude, LongitudeUUID},
	{TrackAngle, TrackAngleUUID},
}

// NavigationReading holds the measurement requested from ReadNavigationValue.
// Only the requested field is set.
type NavigationReading struct {
	Speed      uint16 // m/s
	Latitude   float64
	Longitude  float64
	TrackAngle uint16 // degrees
}

// Navigation exposes GNSS ground speed, position and track.
type Navigation struct {
	*Proxy[NavigationValue]
	events *eventStream
}

// NewNavigation binds a navigation service to svc.
func NewNavigation(t device.Transport, svc *device.Service, opts Options, logger *logrus.Logger) *Navigation {
	if logger == nil {
		logger = logrus.New()
	}
	n := &Navigation{events: newEventStream("navigation", opts.EventBuffer, logger)}
	n.Proxy = NewProxy(t, svc, navigationBindings, n.onValue, logger)
	return n
}

// ReadNavigationValue reads one measurement.
func (n *Navigation) ReadNavigationValue(ctx context.Context, which NavigationValue) (NavigationReading, error) {
	var r NavigationReading
	v, err := n.Read(ctx, which)
	if err != nil {
		return r, err
	}
	switch which {
	case Speed:
		r.Speed, err = v.Uint16()
	case Latitude:
		r.Latitude, err = v.Float64()
	case Longitude:
		r.Longitude, err = v.Float64()
	case TrackAngle:
		r.TrackAngle, err = v.Uint16()
	}
	return r, err
}

// ReadSpeed reads the ground speed.
func (n *Navigation) ReadSpeed(ctx context.Context) (units.Speed, error) {
	r, err := n.ReadNavigationValue(ctx, Speed)
	if err != nil {
		return units.Speed{}, err
	}
	return units.NewSpeed(float64(r.Speed), SpeedUnit), nil
}

// Events delivers SpeedChanged, LatitudeChanged, LongitudeChanged and
// TrackAngleChanged events.
func (n *Navigation) Events() <-chan Event {
	return n.events.C()
}

// Close ends the event stream.
func (n *Navigation) Close() {
	n.events.close()
}

func (n *Navigation) onValue(which NavigationValue, v device.Value) {
	var (
		ev  Event
		err error
	)
	switch which {
	case Speed:
		var s uint16
		s, err = v.Uint16()
		ev = SpeedChanged{Value: units.NewSpeed(float64(s), SpeedUnit)}
	case Latitude:
		var f float64
		f, err = v.Float64()
		ev = LatitudeChanged{Value: f}
	case Longitude:
		var f float64
		f, err = v.Float64()
		ev = LongitudeChanged{Value: f}
	case TrackAngle:
		var a uint16
		a, err = v.Uint16()
		ev = TrackAngleChanged{Value: a}
	default:
		return
	}
	if err != nil {
		n.events.dropDecodeError(which.String(), err)
		return
	}
	n.events.publish(ev)
}
