package vario

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/testutils"
)

var identityFields = []string{"1.0", "2.3.1", "OpenVario", "B", "Acme Avionics", "SN-0042", "2019-04-01"}

var expectedIdentity = IdentificationInfo{
	GattVersion:               "1.0",
	SoftwareVersion:           "2.3.1",
	SoftwareManufacturerName:  "OpenVario",
	HardwareVersion:           "B",
	HardwareManufacturerName:  "Acme Avionics",
	HardwareSerialNumber:      "SN-0042",
	HardwareManufacturingDate: "2019-04-01",
}

// answerCommand makes the info characteristic reflect the last command index.
func answerCommand(p *testutils.Peripheral, data []byte) error {
	if len(data) == 1 && int(data[0]) < len(identityFields) {
		p.SetValue(IdentificationInfoUUID, []byte(identityFields[data[0]]))
	}
	return nil
}

// openVarioPeripheral configures a complete OpenVario peer on b, leaving out
// the services listed in omit.
func openVarioPeripheral(b *testutils.PeripheralBuilder, omit ...uuid.UUID) *testutils.PeripheralBuilder {
	with := func(id uuid.UUID) bool {
		if slices.Contains(omit, id) {
			return false
		}
		b.WithService(id.String())
		return true
	}

	if with(IdentificationServiceUUID) {
		b.WithCharacteristic(CommandUUID.String(), "write", nil, testutils.WithWriteHook(answerCommand)).
			WithCharacteristic(IdentificationInfoUUID.String(), "read", nil)
	}
	if with(AltimeterServiceUUID) {
		b.WithCharacteristic(MainAltitudeUUID.String(), "read,write,notify", []byte{0xDC, 0x05}).
			WithCharacteristic(Altitude1UUID.String(), "read,write,notify", []byte{0x00, 0x00}).
			WithCharacteristic(Altitude2UUID.String(), "read,write,notify", []byte{0x00, 0x00}).
			WithCharacteristic(Altitude3UUID.String(), "read,write,notify", []byte{0x00, 0x00}).
			WithCharacteristic(Altitude4UUID.String(), "read,write,notify", []byte{0x00, 0x00})
	}
	if with(BarometerServiceUUID) {
		b.WithCharacteristic(PressureUUID.String(), "read,notify", []byte{0x10, 0x27, 0x00, 0x00}).
			WithCharacteristic(TemperatureUUID.String(), "read,notify", []byte{0xE7, 0x00})
	}
	if with(NavigationServiceUUID) {
		b.WithCharacteristic(SpeedUUID.String(), "read,notify", []byte{0x78, 0x00}).
			WithCharacteristic(LatitudeUUID.String(), "read,notify", device.Float64Value(45.5).Bytes()).
			WithCharacteristic(LongitudeUUID.String(), "read,notify", device.Float64Value(6.25).Bytes()).
			WithCharacteristic(TrackAngleUUID.String(), "read,notify", []byte{0x0E, 0x01})
	}
	if with(VariometerServiceUUID) {
		b.WithCharacteristic(VarioUUID.String(), "read,notify", device.Int16Value(-150).Bytes()).
			WithCharacteristic(AccelerationUUID.String(), "read,notify", []byte{12})
	}
	return b
}

// serviceByUUID discovers services on t and returns the one with id.
func serviceByUUID(ctx context.Context, t device.Transport, id uuid.UUID) *device.Service {
	services, err := t.DiscoverServices(ctx)
	if err != nil {
		panic(err)
	}
	for _, svc := range services {
		if svc.UUID == id {
			return svc
		}
	}
	panic("service " + id.String() + " not found")
}
