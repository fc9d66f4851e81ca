package goble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/srg/openvario/internal/device"
)

// errorPatterns maps go-ble and CoreBluetooth message fragments onto sentinels.
// Order matters: the first match wins.
var errorPatterns = []struct {
	fragment string
	sentinel error
}{
	{"is bluetooth turned on", device.ErrBluetoothOff},
	{"bluetooth is turned off", device.ErrBluetoothOff},
	{"device not connected", device.ErrNotConnected},
	{"disconnected", device.ErrNotConnected},
	{"device already connected", device.ErrAlreadyConnected},
	{"connection is not initialized", device.ErrNotInitialized},
	{"timed out", device.ErrTimeout},
	{"timeout", device.ErrTimeout},
	{"not supported", device.ErrUnsupported},
}

// NormalizeError maps known go-ble error strings to the device sentinels so
// callers can use errors.Is regardless of platform wording. The original
// error text is preserved.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if errors.Is(err, p.sentinel) {
			return err
		}
		if strings.Contains(msg, p.fragment) {
			return fmt.Errorf("%w: %v", p.sentinel, err)
		}
	}
	return err
}
