package vario

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
)

var (
	BarometerServiceUUID = uuid.MustParse("d29a5ba1-e46c-4e2c-a1b7-05f21091a216")

	PressureUUID    = uuid.MustParse("a59b4f7f-47ec-4515-b561-497209d3e8f2")
	TemperatureUUID = uuid.MustParse("88db8fd5-8362-429b-bfc8-c74aa6c2de44")
)

// BarometerValue selects a barometer measurement.
type BarometerValue int

const (
	Pressure BarometerValue = iota
	Temperature
)

func (b BarometerValue) String() string {
	switch b {
	case Pressure:
		return "pressure"
	case Temperature:
		return "temperature"
	default:
		return fmt.Sprintf("BarometerValue(%d)", int(b))
	}
}

var barometerBindings = []Binding[BarometerValue]{
	{Pressure, PressureUUID},
	{Temperature, TemperatureUUID},
}

// BarometerReading holds the measurement requested from ReadBarometerValue.
// Only the requested field is set.
type BarometerReading struct {
	Pressure    uint32
	Temperature int16
}

// Barometer exposes static pressure and sensor temperature.
type Barometer struct {
	*Proxy[BarometerValue]
	events *eventStream
}

// NewBarometer binds a barometer to svc.
func NewBarometer(t device.Transport, svc *device.Service, opts Options, logger *logrus.Logger) *Barometer {
	if logger == nil {
		logger = logrus.New()
	}
	b := &Barometer{events: newEventStream("barometer", opts.EventBuffer, logger)}
	b.Proxy = NewProxy(t, svc, barometerBindings, b.onValue, logger)
	return b
}

// ReadBarometerValue reads one measurement.
func (b *Barometer) ReadBarometerValue(ctx context.Context, which BarometerValue) (BarometerReading, error) {
	var r BarometerReading
	v, err := b.Read(ctx, which)
	if err != nil {
		return r, err
	}
	switch which {
	case Pressure:
		r.Pressure, err = v.Uint32()
	case Temperature:
		r.Temperature, err = v.Int16()
	}
	return r, err
}

// Events delivers PressureChanged and TemperatureChanged events.
func (b *Barometer) Events() <-chan Event {
	return b.events.C()
}

// Close ends the event stream.
func (b *Barometer) Close() {
	b.events.close()
}

func (b *Barometer) onValue(which BarometerValue, v device.Value) {
	switch which {
	case Pressure:
		p, err := v.Uint32()
		if err != nil {
			b.events.dropDecodeError(which.String(), err)
			return
		}
		b.events.publish(PressureChanged{Value: p})
	case Temperature:
		t, err := v.Int16()
		if err != nil {
			b.events.dropDecodeError(which.String(), err)
			return
		}
		b.events.publish(TemperatureChanged{Value: t})
	}
}
