package goble

import (
	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
)

// BLEAdvertisement wraps ble.Advertisement to implement device.Advertisement interface
type BLEAdvertisement struct {
	adv ble.Advertisement
}

// NewBLEAdvertisement creates a new BLEAdvertisement wrapper
func NewBLEAdvertisement(adv ble.Advertisement) device.Advertisement {
	return &BLEAdvertisement{adv: adv}
}

func (a *BLEAdvertisement) LocalName() string { return a.adv.LocalName() }
func (a *BLEAdvertisement) TxPowerLevel() int { return int(a.adv.TxPowerLevel()) }
func (a *BLEAdvertisement) Connectable() bool { return a.adv.Connectable() }
func (a *BLEAdvertisement) RSSI() int         { return a.adv.RSSI() }
func (a *BLEAdvertisement) Addr() string      { return a.adv.Addr().String() }

// Services returns the advertised service UUIDs, including overflow ones.
func (a *BLEAdvertisement) Services() []uuid.UUID {
	services, overflow := a.adv.Services(), a.adv.OverflowService()
	result := make([]uuid.UUID, 0, len(services)+len(overflow))
	for _, svc := range services {
		result = append(result, ToUUID(svc))
	}
	for _, svc := range overflow {
		result = append(result, ToUUID(svc))
	}
	return result
}
