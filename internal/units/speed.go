// Package units holds physical quantities reported by the vario.
package units

import (
	"cmp"
	"fmt"
	"strings"
)

// SpeedUnit selects how a Speed is expressed.
type SpeedUnit int

const (
	MeterPerSec SpeedUnit = iota
	FeetPerSec
	MeterPerMin
	FeetPerMin
	KmPerHour
	MilesPerHour
)

// ratios from one meter per second.
var speedRatios = map[SpeedUnit]float64{
	MeterPerSec:  1.0,
	FeetPerSec:   3.2808,
	MeterPerMin:  60.0,
	FeetPerMin:   196.848,
	KmPerHour:    3.6,
	MilesPerHour: 2.236932,
}

var speedSymbols = map[SpeedUnit]string{
	MeterPerSec:  "m/s",
	FeetPerSec:   "ft/s",
	MeterPerMin:  "m/min",
	FeetPerMin:   "ft/min",
	KmPerHour:    "km/h",
	MilesPerHour: "mph",
}

func (u SpeedUnit) String() string {
	if s, ok := speedSymbols[u]; ok {
		return s
	}
	return fmt.Sprintf("SpeedUnit(%d)", int(u))
}

// Valid reports whether u is a known unit.
func (u SpeedUnit) Valid() bool {
	_, ok := speedRatios[u]
	return ok
}

// ParseSpeedUnit accepts the unit symbols printed by String, case-insensitively.
func ParseSpeedUnit(s string) (SpeedUnit, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for u, sym := range speedSymbols {
		if sym == needle {
			return u, nil
		}
	}
	return 0, fmt.Errorf("unknown speed unit %q", s)
}

// Speed is a speed value together with its unit.
type Speed struct {
	Value float64
	Unit  SpeedUnit
}

// NewSpeed returns value expressed in unit.
func NewSpeed(value float64, unit SpeedUnit) Speed {
	return Speed{Value: value, Unit: unit}
}

// In converts s to unit.
func (s Speed) In(unit SpeedUnit) Speed {
	if s.Unit == unit {
		return s
	}
	mps := s.Value / speedRatios[s.Unit]
	return Speed{Value: mps * speedRatios[unit], Unit: unit}
}

// Compare orders s and other after converting other into s's unit.
func (s Speed) Compare(other Speed) int {
	return cmp.Compare(s.Value, other.In(s.Unit).Value)
}

// Equal reports whether s and other are the same speed once expressed in s's unit.
func (s Speed) Equal(other Speed) bool {
	return s.Compare(other) == 0
}

func (s Speed) String() string {
	return fmt.Sprintf("%.2f %s", s.Value, s.Unit)
}
