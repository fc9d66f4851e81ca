package vario

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
)

var (
	VariometerServiceUUID = uuid.MustParse("ae283ac8-786f-42ef-b694-b7faf492cae9")

	VarioUUID        = uuid.MustParse("7708157c-132f-4d21-a1d9-c9768732b4e9")
	AccelerationUUID = uuid.MustParse("9e13b15f-3582-433b-9034-55ac8881ee4f")
)

// VariometerValue selects a variometer measurement.
type VariometerValue int

const (
	Vario VariometerValue = iota
	Acceleration
)

func (v VariometerValue) String() string {
	switch v {
	case Vario:
		return "vario"
	case Acceleration:
		return "acceleration"
	default:
		return fmt.Sprintf("VariometerValue(%d)", int(v))
	}
}

var variometerBindings = []Binding[VariometerValue]{
	{Vario, VarioUUID},
	{Acceleration, AccelerationUUID},
}

// VariometerReading holds the measurement requested from ReadVariometerValue.
// Only the requested field is set.
type VariometerReading struct {
	Vario        int16
	Acceleration uint8
}

// Variometer exposes climb rate and acceleration.
type Variometer struct {
	*Proxy[VariometerValue]
	events *eventStream
}

// NewVariometer binds a variometer to svc.
func NewVariometer(t device.Transport, svc *device.Service, opts Options, logger *logrus.Logger) *Variometer {
	if logger == nil {
		logger = logrus.New()
	}
	vm := &Variometer{events: newEventStream("variometer", opts.EventBuffer, logger)}
	vm.Proxy = NewProxy(t, svc, variometerBindings, vm.onValue, logger)
	return vm
}

// ReadVariometerValue reads one measurement.
func (vm *Variometer) ReadVariometerValue(ctx context.Context, which VariometerValue) (VariometerReading, error) {
	var r VariometerReading
	v, err := vm.Read(ctx, which)
	if err != nil {
		return r, err
	}
	switch which {
	case Vario:
		r.Vario, err = v.Int16()
	case Acceleration:
		r.Acceleration, err = v.Uint8()
	}
	return r, err
}

// Events delivers VarioChanged and AccelerationChanged events.
func (vm *Variometer) Events() <-chan Event {
	return vm.events.C()
}

// Close ends the event stream.
func (vm *Variometer) Close() {
	vm.events.close()
}

func (vm *Variometer) onValue(which VariometerValue, v device.Value) {
	switch which {
	case Vario:
		rate, err := v.Int16()
		if err != nil {
			vm.events.dropDecodeError(which.String(), err)
			return
		}
		vm.events.publish(VarioChanged{Value: rate})
	case Acceleration:
		acc, err := v.Uint8()
		if err != nil {
			vm.events.dropDecodeError(which.String(), err)
			return
		}
		vm.events.publish(AccelerationChanged{Value: acc})
	}
}
