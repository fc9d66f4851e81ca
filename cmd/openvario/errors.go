package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/vario"
)

// FormatUserError turns library errors into a message for the terminal.
func FormatUserError(err error) string {
	var missing *vario.MissingServicesError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off or unavailable"
	case errors.Is(err, vario.ErrNotOpenVario):
		return "device is not an OpenVario: identification service not found"
	case errors.As(err, &missing):
		return fmt.Sprintf("device lacks %s; set strict_services: false in the config to use the remaining services",
			strings.Join(missing.Missing, ", "))
	case errors.Is(err, vario.ErrIdentificationFailed):
		return fmt.Sprintf("could not identify the device: %s", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, device.ErrTimeout):
		return "operation timed out"
	case errors.Is(err, device.ErrNotConnected):
		return "device is not connected"
	default:
		return err.Error()
	}
}
