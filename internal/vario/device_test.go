package vario

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type DeviceTestSuite struct {
	testutils.PeripheralSuite
}

func (suite *DeviceTestSuite) open(opts Options, omit ...uuid.UUID) (*Device, *testutils.Peripheral) {
	p := openVarioPeripheral(testutils.NewPeripheralBuilder(), omit...).Build()
	conn := device.NewConnection(p, suite.Logger)
	d := NewDevice(conn, opts, suite.Logger)
	suite.T().Cleanup(func() {
		d.Close()
		_ = conn.Close(context.Background())
	})
	return d, p
}

func (suite *DeviceTestSuite) TestInitialize() {
	// GOAL: Verify a complete OpenVario peer initializes every service
	//
	// TEST SCENARIO: Initialize → identification cached → all proxies available → services kept in discovery order

	d, p := suite.open(DefaultOptions())

	suite.Require().NoError(d.Initialize(suite.Context()))
	suite.Assert().True(d.Initialized())

	info, err := d.Info()
	suite.Require().NoError(err)
	suite.Assert().Equal(expectedIdentity, info)

	id, err := d.Identification()
	suite.Require().NoError(err)
	suite.Assert().Equal(Cached, id.State())

	alt, err := d.Altimeter()
	suite.Require().NoError(err)
	value, err := alt.ReadAltitude(suite.Context(), MainAltitude)
	suite.Require().NoError(err)
	suite.Assert().Equal(int16(1500), value)

	_, err = d.Barometer()
	suite.Assert().NoError(err)
	_, err = d.Navigation()
	suite.Assert().NoError(err)
	_, err = d.Variometer()
	suite.Assert().NoError(err)

	var order []uuid.UUID
	for _, svc := range d.Services() {
		order = append(order, svc.UUID)
	}
	suite.Assert().Equal([]uuid.UUID{
		IdentificationServiceUUID,
		AltimeterServiceUUID,
		BarometerServiceUUID,
		NavigationServiceUUID,
		VariometerServiceUUID,
	}, order)

	suite.Run("idempotent", func() {
		discoveries := p.Calls("discover-services")
		suite.Require().NoError(d.Initialize(suite.Context()))
		suite.Assert().Equal(discoveries, p.Calls("discover-services"))
	})
}

func (suite *DeviceTestSuite) TestNotOpenVario() {
	d, p := suite.open(DefaultOptions(), IdentificationServiceUUID)

	err := d.Initialize(suite.Context())

	suite.Assert().ErrorIs(err, ErrNotOpenVario)
	suite.Assert().False(d.Initialized())
	suite.Assert().Zero(p.Calls("write"), "no handshake MUST be attempted")
}

func (suite *DeviceTestSuite) TestStrictModeRequiresEveryService() {
	// GOAL: Verify strict mode treats the protocol services as all-or-nothing
	//
	// TEST SCENARIO: Navigation absent → Initialize fails naming it → accessors report not initialized

	d, _ := suite.open(DefaultOptions(), NavigationServiceUUID)

	err := d.Initialize(suite.Context())

	var missing *MissingServicesError
	suite.Require().ErrorAs(err, &missing)
	suite.Assert().Equal([]string{"navigation"}, missing.Missing)
	suite.Assert().ErrorIs(err, ErrServiceUnavailable)
	suite.Assert().False(d.Initialized())

	_, err = d.Altimeter()
	suite.Assert().ErrorIs(err, device.ErrNotInitialized)
	_, err = d.Info()
	suite.Assert().ErrorIs(err, device.ErrNotInitialized)
}

func (suite *DeviceTestSuite) TestZeroOptionsAreStrict() {
	// GOAL: Verify a zero Options value gets the strict default and the default event buffer
	//
	// TEST SCENARIO: Options{} with navigation absent → Initialize fails with MissingServicesError

	d, _ := suite.open(Options{}, NavigationServiceUUID)

	var missing *MissingServicesError
	suite.Require().ErrorAs(d.Initialize(suite.Context()), &missing, "zero options MUST be strict")
	suite.Assert().Equal([]string{"navigation"}, missing.Missing)
	suite.Assert().Equal(DefaultEventBuffer, d.opts.EventBuffer)
}

func (suite *DeviceTestSuite) TestRelaxedModeMarksServicesUnavailable() {
	opts := DefaultOptions()
	opts.AllowMissingServices = true
	d, _ := suite.open(opts, NavigationServiceUUID, VariometerServiceUUID)

	suite.Require().NoError(d.Initialize(suite.Context()))

	_, err := d.Navigation()
	suite.Assert().ErrorIs(err, ErrServiceUnavailable)
	_, err = d.Variometer()
	suite.Assert().ErrorIs(err, ErrServiceUnavailable)

	baro, err := d.Barometer()
	suite.Require().NoError(err)
	r, err := baro.ReadBarometerValue(suite.Context(), Pressure)
	suite.Require().NoError(err)
	suite.Assert().Equal(uint32(10000), r.Pressure)
}

func (suite *DeviceTestSuite) TestIdentificationFailureIsRetryable() {
	d, p := suite.open(DefaultOptions())
	boom := errors.New("att: read not permitted")
	p.SetReadHook(IdentificationInfoUUID, func(n int) error { return boom })

	err := d.Initialize(suite.Context())
	suite.Require().ErrorIs(err, ErrIdentificationFailed)
	suite.Assert().False(d.Initialized())

	p.SetReadHook(IdentificationInfoUUID, nil)
	suite.Require().NoError(d.Initialize(suite.Context()))
	suite.Assert().True(d.Initialized())
}

func (suite *DeviceTestSuite) TestDiscoveryFailure() {
	d, p := suite.open(DefaultOptions())
	p.SetDiscoverError(errors.New("link lost"))

	err := d.Initialize(suite.Context())

	suite.Assert().ErrorIs(err, device.ErrCommunication)
	suite.Assert().Nil(d.Services())
}

func TestDeviceTestSuite(t *testing.T) {
	suite.Run(t, new(DeviceTestSuite))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.False(t, opts.AllowMissingServices)
	assert.Equal(t, DefaultEventBuffer, opts.EventBuffer)
}
