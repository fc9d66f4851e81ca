package goble

import (
	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
)

// ToUUID converts a go-ble UUID (little-endian, 2, 4 or 16 bytes) into a
// canonical 128-bit UUID. Short forms expand into the Bluetooth base UUID.
func ToUUID(u ble.UUID) uuid.UUID {
	switch len(u) {
	case 16:
		var id uuid.UUID
		for i := range 16 {
			id[i] = u[15-i]
		}
		return id
	case 2, 4:
		id := device.BaseUUID
		n := len(u)
		for i := 0; i < n; i++ {
			id[4-n+i] = u[n-1-i]
		}
		return id
	default:
		return uuid.Nil
	}
}

// FromUUID converts a canonical UUID into go-ble's 128-bit little-endian form.
func FromUUID(id uuid.UUID) ble.UUID {
	u := make(ble.UUID, 16)
	for i := range 16 {
		u[i] = id[15-i]
	}
	return u
}
