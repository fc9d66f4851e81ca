package vario

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
)

var (
	AltimeterServiceUUID = uuid.MustParse("516c5737-8250-493b-bb95-b2a16f65110e")

	MainAltitudeUUID = uuid.MustParse("f033de08-eda3-46a2-9918-19e123297152")
	Altitude1UUID    = uuid.MustParse("b176dd1b-d98e-4707-b51d-d0e31223f776")
	Altitude2UUID    = uuid.MustParse("e4c54ec3-e4b3-43a3-9eb0-9790615f68c3")
	Altitude3UUID    = uuid.MustParse("2a0934e3-7127-46c0-90a9-d6a5cbb51fa6")
	Altitude4UUID    = uuid.MustParse("80b81b29-791a-4b98-bc76-c6a85539b844")
)

// Altitude selects one of the altimeter's altitudes.
type Altitude int

const (
	MainAltitude Altitude = iota
	Altitude1
	Altitude2
	Altitude3
	Altitude4
)

func (a Altitude) String() string {
	switch a {
	case MainAltitude:
		return "main"
	case Altitude1, Altitude2, Altitude3, Altitude4:
		return fmt.Sprintf("alt%d", int(a))
	default:
		return fmt.Sprintf("Altitude(%d)", int(a))
	}
}

var altimeterBindings = []Binding[Altitude]{
	{MainAltitude, MainAltitudeUUID},
	{Altitude1, Altitude1UUID},
	{Altitude2, Altitude2UUID},
	{Altitude3, Altitude3UUID},
	{Altitude4, Altitude4UUID},
}

// Altimeter exposes the main altitude and four auxiliary altitudes, in meters.
type Altimeter struct {
	*Proxy[Altitude]
	events *eventStream
}

// NewAltimeter binds an altimeter to svc.
func NewAltimeter(t device.Transport, svc *device.Service, opts Options, logger *logrus.Logger) *Altimeter {
	if logger == nil {
		logger = logrus.New()
	}
	a := &Altimeter{events: newEventStream("altimeter", opts.EventBuffer, logger)}
	a.Proxy = NewProxy(t, svc, altimeterBindings, a.onValue, logger)
	return a
}

// ReadAltitude reads one altitude.
func (a *Altimeter) ReadAltitude(ctx context.Context, alt Altitude) (int16, error) {
	v, err := a.Read(ctx, alt)
	if err != nil {
		return 0, err
	}
	return v.Int16()
}

// WriteAltitude calibrates one altitude to value.
func (a *Altimeter) WriteAltitude(ctx context.Context, alt Altitude, value int16) error {
	return a.Write(ctx, alt, device.Int16Value(value))
}

// Events delivers AltitudeChanged events for every altitude with notifications started.
func (a *Altimeter) Events() <-chan Event {
	return a.events.C()
}

// Close ends the event stream.
func (a *Altimeter) Close() {
	a.events.close()
}

func (a *Altimeter) onValue(alt Altitude, v device.Value) {
	value, err := v.Int16()
	if err != nil {
		a.events.dropDecodeError(alt.String(), err)
		return
	}
	a.events.publish(AltitudeChanged{Altitude: alt, Value: value})
}
