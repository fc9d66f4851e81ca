package inspector

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/devicefactory"
	"github.com/srg/openvario/internal/vario"
)

// ProgressCallback is called when the inspection phase changes
type ProgressCallback func(phase string)

// InspectOptions defines options for inspecting a device
type InspectOptions struct {
	ConnectTimeout time.Duration
	Device         vario.Options
	// Raw skips OpenVario initialization; Target.Device is nil.
	Raw bool
}

// DefaultInspectOptions returns a 30 second connect timeout and default device options.
func DefaultInspectOptions() *InspectOptions {
	return &InspectOptions{
		ConnectTimeout: 30 * time.Second,
		Device:         vario.DefaultOptions(),
	}
}

// Target is what an InspectCallback works on.
type Target struct {
	Connection *device.Connection
	Device     *vario.Device
}

// InspectCallback processes a connected device and produces output of type R
type InspectCallback[R any] func(Target) (R, error)

// InspectDevice connects to a device, initializes it as an OpenVario and
// executes the callback. The connection lifecycle is managed automatically.
// Optional progressCallback can be provided for connection progress updates.
func InspectDevice[R any](ctx context.Context, address string, opts *InspectOptions, logger *logrus.Logger, progressCallback ProgressCallback, callback InspectCallback[R]) (R, error) {
	var zero R
	if opts == nil {
		opts = DefaultInspectOptions()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}

	progressCallback("Connecting")

	conn, err := devicefactory.Connect(ctx, address, opts.ConnectTimeout, logger)
	if err != nil {
		progressCallback("Failed")
		return zero, err
	}

	progressCallback("Connected")

	// Ensure the device is disconnected after the callback completes
	var dev *vario.Device
	defer func() {
		if dev != nil {
			dev.Close()
		}
		if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Error("failed to disconnect device")
		}
	}()

	if !opts.Raw {
		progressCallback("Identifying")
		dev = vario.NewDevice(conn, opts.Device, logger)
		if err := dev.Initialize(ctx); err != nil {
			progressCallback("Failed")
			return zero, err
		}
	}

	progressCallback("Processing results")

	return callback(Target{Connection: conn, Device: dev})
}
