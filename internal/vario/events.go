package vario

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/ringchan"
	"github.com/srg/openvario/internal/units"
)

// Event is a value change reported by one of the vario services.
// The concrete type tells which value changed.
type Event interface {
	event()
}

type AltitudeChanged struct {
	Altitude Altitude
	Value    int16
}

type PressureChanged struct {
	Value uint32
}

type TemperatureChanged struct {
	Value int16
}

// SpeedChanged carries the ground speed as reported, in m/s.
type SpeedChanged struct {
	Value units.Speed
}

type LatitudeChanged struct {
	Value float64
}

type LongitudeChanged struct {
	Value float64
}

type TrackAngleChanged struct {
	Value uint16
}

type VarioChanged struct {
	Value int16
}

type AccelerationChanged struct {
	Value uint8
}

func (AltitudeChanged) event()     {}
func (PressureChanged) event()     {}
func (TemperatureChanged) event()  {}
func (SpeedChanged) event()        {}
func (LatitudeChanged) event()     {}
func (LongitudeChanged) event()    {}
func (TrackAngleChanged) event()   {}
func (VarioChanged) event()        {}
func (AccelerationChanged) event() {}

// eventStream delivers a service's events without ever blocking the
// notification goroutine. When the consumer falls behind the oldest event is
// dropped.
type eventStream struct {
	name   string
	ring   *ringchan.RingChannel[Event]
	logger *logrus.Logger
}

func newEventStream(name string, size int, logger *logrus.Logger) *eventStream {
	if size <= 0 {
		size = DefaultEventBuffer
	}
	return &eventStream{name: name, ring: ringchan.New[Event](size), logger: logger}
}

func (s *eventStream) publish(ev Event) {
	if s.ring.ForceSend(ev) {
		s.logger.WithField("service", s.name).Debug("Event buffer full, dropped oldest event")
	}
}

func (s *eventStream) C() <-chan Event {
	return s.ring.C()
}

// close ends the stream and logs how much traffic it carried.
func (s *eventStream) close() {
	pending := s.ring.Len()
	s.ring.Close()
	m := s.ring.GetMetrics()
	s.logger.WithFields(logrus.Fields{
		"service":     s.name,
		"written":     m.Written,
		"overwritten": m.Overwritten,
		"pending":     pending,
	}).Debug("Event stream closed")
}

func (s *eventStream) dropDecodeError(what string, err error) {
	s.logger.WithFields(logrus.Fields{
		"service": s.name,
		"value":   what,
		"error":   err,
	}).Warn("Dropping undecodable notification")
}
