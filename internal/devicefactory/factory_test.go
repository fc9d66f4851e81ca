package devicefactory_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/devicefactory"
	"github.com/srg/openvario/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overrideClientFactory(t *testing.T, fn func(ctx context.Context, address string, timeout time.Duration, logger *logrus.Logger) (device.Client, error)) {
	t.Helper()
	prev := devicefactory.ClientFactory
	devicefactory.ClientFactory = fn
	t.Cleanup(func() { devicefactory.ClientFactory = prev })
}

func TestConnect(t *testing.T) {
	p := testutils.NewPeripheralBuilder().WithService("180F").Build()
	var dialed string
	var dialTimeout time.Duration
	overrideClientFactory(t, func(_ context.Context, address string, timeout time.Duration, _ *logrus.Logger) (device.Client, error) {
		dialed, dialTimeout = address, timeout
		return p, nil
	})

	conn, err := devicefactory.Connect(context.Background(), " AA:BB:CC:DD:EE:FF ", 5*time.Second, nil)
	require.NoError(t, err)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", dialed)
	assert.Equal(t, 5*time.Second, dialTimeout)

	services, err := conn.DiscoverServices(context.Background())
	require.NoError(t, err)
	assert.Len(t, services, 1)

	require.NoError(t, conn.Close(context.Background()))
	assert.True(t, p.Disconnected(), "closing the connection MUST disconnect the device")
}

func TestConnectErrors(t *testing.T) {
	overrideClientFactory(t, func(context.Context, string, time.Duration, *logrus.Logger) (device.Client, error) {
		return nil, device.ErrBluetoothOff
	})

	_, err := devicefactory.Connect(context.Background(), "AA:BB:CC:DD:EE:FF", time.Second, nil)
	assert.ErrorIs(t, err, device.ErrBluetoothOff)

	_, err = devicefactory.Connect(context.Background(), "  ", time.Second, nil)
	assert.Error(t, err)
}
