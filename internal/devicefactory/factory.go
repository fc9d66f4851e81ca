package devicefactory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/device/go-ble"
)

// ScanningDeviceFactory creates device.ScanningDevice instances for BLE scanning operations.
// This is a variable so that it can be overridden in tests.
var ScanningDeviceFactory = goble.NewScanningDevice

// ClientFactory dials a device and returns its raw backend client.
// This is a variable so that it can be overridden in tests.
var ClientFactory = func(ctx context.Context, address string, timeout time.Duration, logger *logrus.Logger) (device.Client, error) {
	c, err := goble.Dial(ctx, address, timeout, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Connect dials the device with the given address and returns a transport
// over the connection. Closing the connection disconnects the device.
func Connect(ctx context.Context, address string, timeout time.Duration, logger *logrus.Logger) (*device.Connection, error) {
	if logger == nil {
		logger = logrus.New()
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("device address is empty")
	}

	client, err := ClientFactory(ctx, address, timeout, logger)
	if err != nil {
		return nil, err
	}
	return device.NewConnection(client, logger), nil
}
