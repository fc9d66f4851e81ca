package testutils

import (
	"context"

	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
)

// Advertisement is a plain device.Advertisement for tests.
type Advertisement struct {
	name        string
	address     string
	rssi        int
	txPower     int
	connectable bool
	services    []uuid.UUID
}

func (a *Advertisement) LocalName() string      { return a.name }
func (a *Advertisement) Services() []uuid.UUID  { return a.services }
func (a *Advertisement) TxPowerLevel() int      { return a.txPower }
func (a *Advertisement) Connectable() bool      { return a.connectable }
func (a *Advertisement) RSSI() int              { return a.rssi }
func (a *Advertisement) Addr() string           { return a.address }

// AdvertisementBuilder builds advertisements with a fluent API.
// Advertisements are connectable unless configured otherwise.
type AdvertisementBuilder struct {
	adv Advertisement
}

// NewAdvertisementBuilder creates a builder for a connectable advertisement.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{adv: Advertisement{connectable: true}}
}

func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.adv.name = name
	return b
}

func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.adv.address = addr
	return b
}

func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.adv.rssi = rssi
	return b
}

func (b *AdvertisementBuilder) WithTxPower(power int) *AdvertisementBuilder {
	b.adv.txPower = power
	return b
}

func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.adv.connectable = c
	return b
}

// WithServices adds advertised service UUIDs in short or full form.
func (b *AdvertisementBuilder) WithServices(ids ...string) *AdvertisementBuilder {
	for _, id := range ids {
		b.adv.services = append(b.adv.services, mustUUID(id))
	}
	return b
}

// Build returns a copy of the configured advertisement.
func (b *AdvertisementBuilder) Build() *Advertisement {
	adv := b.adv
	adv.services = append([]uuid.UUID(nil), b.adv.services...)
	return &adv
}

// ScanStep is one scripted moment of a FakeScanningDevice run.
type ScanStep struct {
	Advertisement device.Advertisement
	// Wait, when non-nil, blocks the scan until it is closed or the scan ends.
	Wait <-chan struct{}
}

// FakeScanningDevice replays advertisements and then blocks until the scan
// context is done, like a real adapter.
type FakeScanningDevice struct {
	Steps []ScanStep
	// Err is returned instead of ctx.Err() when set.
	Err error
}

var _ device.ScanningDevice = (*FakeScanningDevice)(nil)

// NewFakeScanningDevice returns a device that reports advs once each.
func NewFakeScanningDevice(advs ...device.Advertisement) *FakeScanningDevice {
	d := &FakeScanningDevice{}
	for _, adv := range advs {
		d.Steps = append(d.Steps, ScanStep{Advertisement: adv})
	}
	return d
}

func (d *FakeScanningDevice) Scan(ctx context.Context, _ bool, handler func(device.Advertisement)) error {
	for _, step := range d.Steps {
		if step.Wait != nil {
			select {
			case <-step.Wait:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if step.Advertisement != nil {
			handler(step.Advertisement)
		}
	}
	if d.Err != nil {
		return d.Err
	}
	<-ctx.Done()
	return ctx.Err()
}
