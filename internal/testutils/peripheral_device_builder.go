package testutils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
)

// CharacteristicOption customizes a characteristic added to a PeripheralBuilder.
type CharacteristicOption func(*fakeCharacteristic)

// WithWriteHook installs a write hook on the characteristic.
func WithWriteHook(hook WriteHook) CharacteristicOption {
	return func(fc *fakeCharacteristic) { fc.writeHook = hook }
}

// PeripheralBuilder builds a Peripheral with a fluent service/characteristic API.
//
//	p := testutils.NewPeripheralBuilder().
//	    WithService("180F").
//	    WithCharacteristic("2A19", "read,notify", []byte{50}).
//	    Build()
type PeripheralBuilder struct {
	services   []*fakeService
	nextHandle device.Handle
}

// NewPeripheralBuilder creates an empty builder.
func NewPeripheralBuilder() *PeripheralBuilder {
	return &PeripheralBuilder{nextHandle: 1}
}

func (b *PeripheralBuilder) handle() device.Handle {
	h := b.nextHandle
	// leave room for a CCCD after every attribute
	b.nextHandle += 2
	return h
}

func mustUUID(s string) uuid.UUID {
	id, err := device.ParseUUID(s)
	if err != nil {
		panic(fmt.Sprintf("testutils: %v", err))
	}
	return id
}

// WithService appends a service. id may be a short or full UUID.
func (b *PeripheralBuilder) WithService(id string) *PeripheralBuilder {
	b.services = append(b.services, &fakeService{
		svc: device.NewService(mustUUID(id), "", b.handle()),
	})
	return b
}

// WithIncludedService declares that the last service includes the service id,
// which must already have been added.
func (b *PeripheralBuilder) WithIncludedService(id string) *PeripheralBuilder {
	if len(b.services) == 0 {
		panic("WithIncludedService: no service added yet, call WithService first")
	}
	target := mustUUID(id)
	for _, fs := range b.services {
		if fs.svc.UUID == target {
			last := b.services[len(b.services)-1]
			last.include = append(last.include, fs.svc)
			return b
		}
	}
	panic(fmt.Sprintf("WithIncludedService: service %s not added", id))
}

// WithCharacteristic adds a characteristic to the last added service.
// properties is a comma-separated list: read, write, write-without-response,
// notify, indicate.
func (b *PeripheralBuilder) WithCharacteristic(id, properties string, value []byte, opts ...CharacteristicOption) *PeripheralBuilder {
	if len(b.services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	fc := &fakeCharacteristic{
		char:  device.NewCharacteristic(mustUUID(id), "", b.handle(), ParseProperties(properties)),
		value: append([]byte(nil), value...),
	}
	for _, opt := range opts {
		opt(fc)
	}
	last := b.services[len(b.services)-1]
	last.chars = append(last.chars, fc)
	return b
}

// ParseProperties converts a comma-separated property list into flags.
func ParseProperties(props string) device.Property {
	var p device.Property
	for _, name := range strings.Split(props, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "broadcast":
			p |= device.PropBroadcast
		case "read":
			p |= device.PropRead
		case "write-without-response", "writenr":
			p |= device.PropWriteWithoutResponse
		case "write":
			p |= device.PropWrite
		case "notify":
			p |= device.PropNotify
		case "indicate":
			p |= device.PropIndicate
		}
	}
	return p
}

// Build returns the configured Peripheral.
func (b *PeripheralBuilder) Build() *Peripheral {
	p := &Peripheral{
		services: b.services,
		byUUID:   make(map[uuid.UUID]*fakeCharacteristic),
		subs:     make(map[device.Handle]subscription),
		calls:    make(map[string]int),
	}
	for _, fs := range b.services {
		for _, fc := range fs.chars {
			p.byUUID[fc.char.UUID] = fc
		}
	}
	return p
}
