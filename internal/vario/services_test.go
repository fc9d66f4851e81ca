package vario

import (
	"testing"
	"time"

	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/testutils"
	"github.com/srg/openvario/internal/units"
	"github.com/stretchr/testify/suite"
)

type ServicesTestSuite struct {
	testutils.PeripheralSuite
	opts Options
}

func (suite *ServicesTestSuite) SetupTest() {
	openVarioPeripheral(suite.WithPeripheral())
	suite.PeripheralSuite.SetupTest()
	suite.opts = DefaultOptions()
}

func (suite *ServicesTestSuite) altimeter() *Altimeter {
	svc := serviceByUUID(suite.Context(), suite.Connection, AltimeterServiceUUID)
	a := NewAltimeter(suite.Connection, svc, suite.opts, suite.Logger)
	suite.T().Cleanup(a.Close)
	return a
}

func (suite *ServicesTestSuite) nextEvent(events <-chan Event) Event {
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		suite.FailNow("no event delivered")
		return nil
	}
}

func (suite *ServicesTestSuite) assertNoEvent(events <-chan Event) {
	select {
	case ev := <-events:
		suite.Failf("unexpected event", "%#v", ev)
	default:
	}
}

func (suite *ServicesTestSuite) TestAltimeterWriteThenRead() {
	// GOAL: Verify altitude calibration is encoded as little-endian int16
	//
	// TEST SCENARIO: Write 1500 → device receives [DC 05] → read back decodes 1500

	a := suite.altimeter()
	suite.Peripheral.SetValue(MainAltitudeUUID, []byte{0, 0})

	suite.Require().NoError(a.WriteAltitude(suite.Context(), MainAltitude, 1500))

	writes := suite.Peripheral.Writes(MainAltitudeUUID)
	suite.Require().Len(writes, 1)
	suite.Assert().Equal([]byte{0xDC, 0x05}, writes[0], "altitude MUST be written little-endian")

	alt, err := a.ReadAltitude(suite.Context(), MainAltitude)
	suite.Require().NoError(err)
	suite.Assert().Equal(int16(1500), alt)
}

func (suite *ServicesTestSuite) TestAltimeterNegativeAltitude() {
	a := suite.altimeter()
	suite.Require().NoError(a.WriteAltitude(suite.Context(), Altitude3, -12))

	alt, err := a.ReadAltitude(suite.Context(), Altitude3)
	suite.Require().NoError(err)
	suite.Assert().Equal(int16(-12), alt)
	suite.Assert().Equal([]byte{0xF4, 0xFF}, suite.Peripheral.Value(Altitude3UUID))
}

func (suite *ServicesTestSuite) TestAltimeterWrongWidth() {
	a := suite.altimeter()
	suite.Peripheral.SetValue(Altitude2UUID, []byte{1, 2, 3})

	_, err := a.ReadAltitude(suite.Context(), Altitude2)
	suite.Assert().Error(err, "a 3-byte altitude MUST be rejected")
}

func (suite *ServicesTestSuite) TestAltimeterEvents() {
	// GOAL: Verify notifications become typed events on one channel
	//
	// TEST SCENARIO: Start main + alt1 → notify each → AltitudeChanged tagged per altitude → malformed payload dropped

	a := suite.altimeter()
	suite.Require().NoError(a.StartNotification(suite.Context(), MainAltitude))
	suite.Require().NoError(a.StartNotification(suite.Context(), Altitude1))

	suite.Require().True(suite.Peripheral.Notify(MainAltitudeUUID, []byte{0xDC, 0x05}))
	suite.Require().True(suite.Peripheral.Notify(Altitude1UUID, []byte{0x64, 0x00}))
	suite.Require().True(suite.Peripheral.Notify(Altitude1UUID, []byte{0x64}))
	suite.Assert().False(suite.Peripheral.Notify(Altitude2UUID, []byte{0x01, 0x00}), "altitude without notifications MUST NOT deliver")

	suite.Assert().Equal(AltitudeChanged{Altitude: MainAltitude, Value: 1500}, suite.nextEvent(a.Events()))
	suite.Assert().Equal(AltitudeChanged{Altitude: Altitude1, Value: 100}, suite.nextEvent(a.Events()))
	suite.assertNoEvent(a.Events())
}

func (suite *ServicesTestSuite) TestEventBufferOverwritesOldest() {
	suite.opts.EventBuffer = 2
	a := suite.altimeter()
	suite.Require().NoError(a.StartNotification(suite.Context(), MainAltitude))

	for i := int16(1); i <= 5; i++ {
		suite.Require().True(suite.Peripheral.Notify(MainAltitudeUUID, device.Int16Value(i).Bytes()))
	}

	suite.Assert().Equal(AltitudeChanged{Altitude: MainAltitude, Value: 4}, suite.nextEvent(a.Events()))
	suite.Assert().Equal(AltitudeChanged{Altitude: MainAltitude, Value: 5}, suite.nextEvent(a.Events()))
	suite.assertNoEvent(a.Events())
}

func (suite *ServicesTestSuite) TestNotificationAfterClose() {
	a := suite.altimeter()
	suite.Require().NoError(a.StartNotification(suite.Context(), MainAltitude))
	a.Close()

	suite.Assert().NotPanics(func() {
		suite.Peripheral.Notify(MainAltitudeUUID, []byte{0x01, 0x00})
	})
	_, open := <-a.Events()
	suite.Assert().False(open)
}

func (suite *ServicesTestSuite) TestBarometer() {
	// GOAL: Verify the barometer decodes pressure as uint32 and temperature as int16
	//
	// TEST SCENARIO: Pressure [10 27 00 00] → 10000 → temperature [E7 00] → 231 → events typed per value

	svc := serviceByUUID(suite.Context(), suite.Connection, BarometerServiceUUID)
	b := NewBarometer(suite.Connection, svc, suite.opts, suite.Logger)
	defer b.Close()

	r, err := b.ReadBarometerValue(suite.Context(), Pressure)
	suite.Require().NoError(err)
	suite.Assert().Equal(BarometerReading{Pressure: 10000}, r, "only the requested field MUST be set")

	r, err = b.ReadBarometerValue(suite.Context(), Temperature)
	suite.Require().NoError(err)
	suite.Assert().Equal(BarometerReading{Temperature: 231}, r)

	suite.Require().NoError(b.StartNotification(suite.Context(), Pressure))
	suite.Require().NoError(b.StartNotification(suite.Context(), Temperature))
	suite.Peripheral.Notify(TemperatureUUID, device.Int16Value(-40).Bytes())
	suite.Peripheral.Notify(PressureUUID, device.Uint32Value(101325).Bytes())

	suite.Assert().Equal(TemperatureChanged{Value: -40}, suite.nextEvent(b.Events()))
	suite.Assert().Equal(PressureChanged{Value: 101325}, suite.nextEvent(b.Events()))
}

func (suite *ServicesTestSuite) TestNavigation() {
	svc := serviceByUUID(suite.Context(), suite.Connection, NavigationServiceUUID)
	n := NewNavigation(suite.Connection, svc, suite.opts, suite.Logger)
	defer n.Close()

	suite.Run("readings", func() {
		r, err := n.ReadNavigationValue(suite.Context(), Latitude)
		suite.Require().NoError(err)
		suite.Assert().Equal(45.5, r.Latitude)

		r, err = n.ReadNavigationValue(suite.Context(), Longitude)
		suite.Require().NoError(err)
		suite.Assert().Equal(6.25, r.Longitude)

		r, err = n.ReadNavigationValue(suite.Context(), TrackAngle)
		suite.Require().NoError(err)
		suite.Assert().Equal(uint16(270), r.TrackAngle)
	})

	suite.Run("speed in m/s", func() {
		speed, err := n.ReadSpeed(suite.Context())
		suite.Require().NoError(err)
		suite.Assert().Equal(units.NewSpeed(120, units.MeterPerSec), speed, "raw speed MUST be read as m/s")
		suite.Assert().InDelta(432, speed.In(units.KmPerHour).Value, 0.01)
	})

	suite.Run("events", func() {
		suite.Require().NoError(n.StartNotification(suite.Context(), Speed))
		suite.Require().NoError(n.StartNotification(suite.Context(), Latitude))
		suite.Peripheral.Notify(SpeedUUID, device.Uint16Value(90).Bytes())
		suite.Peripheral.Notify(LatitudeUUID, device.Float64Value(-33.9).Bytes())

		suite.Assert().Equal(SpeedChanged{Value: units.NewSpeed(90, units.MeterPerSec)}, suite.nextEvent(n.Events()))
		suite.Assert().Equal(LatitudeChanged{Value: -33.9}, suite.nextEvent(n.Events()))
	})
}

func (suite *ServicesTestSuite) TestVariometer() {
	svc := serviceByUUID(suite.Context(), suite.Connection, VariometerServiceUUID)
	vm := NewVariometer(suite.Connection, svc, suite.opts, suite.Logger)
	defer vm.Close()

	r, err := vm.ReadVariometerValue(suite.Context(), Vario)
	suite.Require().NoError(err)
	suite.Assert().Equal(int16(-150), r.Vario)

	r, err = vm.ReadVariometerValue(suite.Context(), Acceleration)
	suite.Require().NoError(err)
	suite.Assert().Equal(uint8(12), r.Acceleration)

	suite.Require().NoError(vm.StartNotification(suite.Context(), Vario))
	suite.Require().NoError(vm.StartNotification(suite.Context(), Acceleration))
	suite.Peripheral.Notify(AccelerationUUID, []byte{20})
	suite.Peripheral.Notify(VarioUUID, device.Int16Value(250).Bytes())

	suite.Assert().Equal(AccelerationChanged{Value: 20}, suite.nextEvent(vm.Events()))
	suite.Assert().Equal(VarioChanged{Value: 250}, suite.nextEvent(vm.Events()))

	suite.Require().NoError(vm.StopNotification(suite.Context(), Vario))
	suite.Assert().False(suite.Peripheral.Notify(VarioUUID, device.Int16Value(1).Bytes()))
}

func TestServicesTestSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}
