package goble

import (
	"errors"
	"testing"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
	"github.com/stretchr/testify/assert"
)

func TestToUUID(t *testing.T) {
	tests := []struct {
		name string
		in   ble.UUID
		want string
	}{
		{"16-bit", ble.UUID16(0x180F), "0000180f-0000-1000-8000-00805f9b34fb"},
		{"32-bit", ble.UUID{0x78, 0x56, 0x34, 0x12}, "12345678-0000-1000-8000-00805f9b34fb"},
		{"128-bit", ble.MustParse("ae283ac8-786f-42ef-b694-b7faf492cae9"), "ae283ac8-786f-42ef-b694-b7faf492cae9"},
		{"malformed", ble.UUID{0x01, 0x02, 0x03}, uuid.Nil.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToUUID(tt.in).String())
		})
	}
}

func TestFromUUIDRoundTrip(t *testing.T) {
	id := uuid.MustParse("7708157c-132f-4d21-a1d9-c9768732b4e9")

	native := FromUUID(id)

	assert.True(t, native.Equal(ble.MustParse(id.String())), "native form MUST match go-ble's own parser")
	assert.Equal(t, id, ToUUID(native))
}

func TestToProperties(t *testing.T) {
	got := ToProperties(ble.CharRead | ble.CharNotify | ble.CharWriteNR)

	assert.True(t, got.Has(device.PropRead))
	assert.True(t, got.Has(device.PropNotify))
	assert.True(t, got.Has(device.PropWriteWithoutResponse))
	assert.False(t, got.Has(device.PropWrite))
	assert.False(t, got.Has(device.PropIndicate))
	assert.Equal(t, device.Property(0), ToProperties(0))
}

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"central manager has invalid state: have=4 want=5: is Bluetooth turned on?", device.ErrBluetoothOff},
		{"device not connected", device.ErrNotConnected},
		{"peripheral disconnected", device.ErrNotConnected},
		{"device already connected", device.ErrAlreadyConnected},
		{"connection is not initialized", device.ErrNotInitialized},
		{"operation timed out", device.ErrTimeout},
		{"indication not supported", device.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := NormalizeError(errors.New(tt.msg))
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.msg, "original text MUST be preserved")
		})
	}

	t.Run("nil and unknown pass through", func(t *testing.T) {
		assert.NoError(t, NormalizeError(nil))
		plain := errors.New("att error 0x0e")
		assert.Same(t, plain, NormalizeError(plain))
	})

	t.Run("already normalized", func(t *testing.T) {
		assert.Same(t, device.ErrTimeout, NormalizeError(device.ErrTimeout))
	})
}
