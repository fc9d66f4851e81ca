package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/openvario/inspector"
	"github.com/srg/openvario/pkg/config"
)

const deviceAddressNote = `The device address is the MAC address on Linux and the CoreBluetooth
identifier on macOS; both are printed by the scan command.`

// withDevice connects to address, initializes it unless raw is set, and runs fn.
// Ctrl+C cancels the context passed to fn.
func withDevice[R any](cmd *cobra.Command, cfg *config.Config, logger *logrus.Logger, address string, raw bool,
	fn func(ctx context.Context, t inspector.Target) (R, error)) (R, error) {

	ctx, cancel := interruptible(cmd.Context(), cmd.ErrOrStderr(), "operation")
	defer cancel()

	opts := &inspector.InspectOptions{
		ConnectTimeout: cfg.ConnectTimeout,
		Device:         cfg.DeviceOptions(),
		Raw:            raw,
	}

	progress := NewProgressPrinter(cmd.ErrOrStderr(), "Connecting to "+address, "Connecting", "Processing results", "Failed")
	progress.Start()
	defer progress.Stop()

	return inspector.InspectDevice(ctx, address, opts, logger, progress.Callback(), func(t inspector.Target) (R, error) {
		return fn(ctx, t)
	})
}
