package vario

import (
	"github.com/mcuadros/go-defaults"
)

// DefaultEventBuffer is the per-service event buffer used when none is configured.
const DefaultEventBuffer = 64

// Options configures a Device and the services it builds.
type Options struct {
	// AllowMissingServices lets Initialize succeed when protocol services are
	// absent; their accessors then report ErrServiceUnavailable. The zero
	// value is strict: any absent service fails Initialize.
	AllowMissingServices bool

	// EventBuffer is the capacity of every service's event channel.
	EventBuffer int `default:"64"`
}

// DefaultOptions returns strict options with the default event buffer.
func DefaultOptions() Options {
	var o Options
	defaults.SetDefaults(&o)
	return o
}
